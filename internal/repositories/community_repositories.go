package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
)

// notificationBatchSize bounds a single INSERT during wishlist fan-out so a
// popular book cannot produce one oversized statement.
const notificationBatchSize = 100

type WishlistRepository interface {
	Create(db *gorm.DB, entry *models.Wishlist) error
	GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Wishlist, error)
	Delete(db *gorm.DB, userID, bookID uuid.UUID) error
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Wishlist, error)
	SubscriberIDs(db *gorm.DB, bookID uuid.UUID) ([]uuid.UUID, error)
}

type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	CreateBatch(db *gorm.DB, notifications []models.Notification) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Notification, error)
	MarkRead(db *gorm.DB, id uuid.UUID) error
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Notification, error)
}

type FeedbackRepository interface {
	Create(db *gorm.DB, feedback *models.Feedback) error
	ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Feedback, error)
}

type ReportRepository interface {
	Create(db *gorm.DB, report *models.Report) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Report, error)
	UpdateModeration(db *gorm.DB, id uuid.UUID, status models.ReportStatus, remarks string) error
}

type AnnouncementRepository interface {
	Create(db *gorm.DB, announcement *models.Announcement) error
	ListActive(db *gorm.DB) ([]models.Announcement, error)
}

type wishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(db *gorm.DB, entry *models.Wishlist) error {
	if db == nil {
		db = r.db
	}
	return db.Create(entry).Error
}

func (r *wishlistRepository) GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Wishlist, error) {
	if db == nil {
		db = r.db
	}
	var entry models.Wishlist
	err := db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *wishlistRepository) Delete(db *gorm.DB, userID, bookID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Wishlist{}, "user_id = ? AND book_id = ?", userID, bookID).Error
}

func (r *wishlistRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Wishlist, error) {
	if db == nil {
		db = r.db
	}
	var entries []models.Wishlist
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *wishlistRepository) SubscriberIDs(db *gorm.DB, bookID uuid.UUID) ([]uuid.UUID, error) {
	if db == nil {
		db = r.db
	}
	var ids []uuid.UUID
	err := db.Model(&models.Wishlist{}).
		Where("book_id = ?", bookID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(db *gorm.DB, notification *models.Notification) error {
	if db == nil {
		db = r.db
	}
	return db.Create(notification).Error
}

func (r *notificationRepository) CreateBatch(db *gorm.DB, notifications []models.Notification) error {
	if db == nil {
		db = r.db
	}
	if len(notifications) == 0 {
		return nil
	}
	return db.CreateInBatches(notifications, notificationBatchSize).Error
}

func (r *notificationRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Notification, error) {
	if db == nil {
		db = r.db
	}
	var notification models.Notification
	if err := db.First(&notification, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) MarkRead(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).
		Error
}

func (r *notificationRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Notification, error) {
	if db == nil {
		db = r.db
	}
	var notifications []models.Notification
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(db *gorm.DB, feedback *models.Feedback) error {
	if db == nil {
		db = r.db
	}
	return db.Create(feedback).Error
}

func (r *feedbackRepository) ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Feedback, error) {
	if db == nil {
		db = r.db
	}
	var feedback []models.Feedback
	if err := db.Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&feedback).Error; err != nil {
		return nil, err
	}
	return feedback, nil
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(db *gorm.DB, report *models.Report) error {
	if db == nil {
		db = r.db
	}
	return db.Create(report).Error
}

func (r *reportRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Report, error) {
	if db == nil {
		db = r.db
	}
	var report models.Report
	if err := db.First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) UpdateModeration(db *gorm.DB, id uuid.UUID, status models.ReportStatus, remarks string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"admin_remarks": remarks,
		}).Error
}

type announcementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(db *gorm.DB, announcement *models.Announcement) error {
	if db == nil {
		db = r.db
	}
	return db.Create(announcement).Error
}

func (r *announcementRepository) ListActive(db *gorm.DB) ([]models.Announcement, error) {
	if db == nil {
		db = r.db
	}
	var announcements []models.Announcement
	if err := db.Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&announcements).Error; err != nil {
		return nil, err
	}
	return announcements, nil
}
