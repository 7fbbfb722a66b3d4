package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// NotificationSink is the durable notice store. No delivery guarantee beyond
// storage; users poll their own list.
type NotificationSink interface {
	Post(user uuid.UUID, message string) (*models.Notification, error)
	List(user uuid.UUID) ([]models.Notification, error)
	MarkRead(id, actor uuid.UUID) (*models.Notification, error)
}

type notificationSink struct {
	db        *gorm.DB
	notifRepo repositories.NotificationRepository
}

func NewNotificationSink(db *gorm.DB, notifRepo repositories.NotificationRepository) NotificationSink {
	return &notificationSink{db: db, notifRepo: notifRepo}
}

func (s *notificationSink) Post(user uuid.UUID, message string) (*models.Notification, error) {
	if message == "" {
		return nil, E(KindValidation, "message is required")
	}
	notification := &models.Notification{UserID: user, Message: message}
	if err := s.notifRepo.Create(nil, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *notificationSink) List(user uuid.UUID) ([]models.Notification, error) {
	return s.notifRepo.ListByUser(nil, user)
}

// MarkRead flips the read flag. Only the notification's owner may do it.
func (s *notificationSink) MarkRead(id, actor uuid.UUID) (*models.Notification, error) {
	notification, err := s.notifRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "notification not found")
		}
		return nil, err
	}
	if notification.UserID != actor {
		return nil, E(KindAuthorization, "notification belongs to another user")
	}
	if err := s.notifRepo.MarkRead(nil, id); err != nil {
		return nil, err
	}
	notification.IsRead = true
	return notification, nil
}
