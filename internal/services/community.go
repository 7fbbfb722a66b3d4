package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// CommunityService covers feedback on books, abuse reports with staff
// moderation, and staff announcements.
type CommunityService interface {
	LeaveFeedback(user uuid.UUID, bookID uuid.UUID, rating int, comment string) (*models.Feedback, error)
	ListFeedback(bookID uuid.UUID) ([]models.Feedback, error)

	FileReport(reporter uuid.UUID, reportType, reason string) (*models.Report, error)
	ModerateReport(id uuid.UUID, actor Principal, status models.ReportStatus, remarks string) (*models.Report, error)

	PublishAnnouncement(actor Principal, title, message string) (*models.Announcement, error)
	ListAnnouncements() ([]models.Announcement, error)
}

type communityService struct {
	db               *gorm.DB
	bookRepo         repositories.BookRepository
	feedbackRepo     repositories.FeedbackRepository
	reportRepo       repositories.ReportRepository
	announcementRepo repositories.AnnouncementRepository
}

func NewCommunityService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	feedbackRepo repositories.FeedbackRepository,
	reportRepo repositories.ReportRepository,
	announcementRepo repositories.AnnouncementRepository,
) CommunityService {
	return &communityService{
		db:               db,
		bookRepo:         bookRepo,
		feedbackRepo:     feedbackRepo,
		reportRepo:       reportRepo,
		announcementRepo: announcementRepo,
	}
}

func (s *communityService) LeaveFeedback(user uuid.UUID, bookID uuid.UUID, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, E(KindValidation, "rating must be between 1 and 5")
	}
	if _, err := s.bookRepo.GetByID(nil, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "book not found")
		}
		return nil, err
	}

	feedback := &models.Feedback{
		UserID:  user,
		BookID:  bookID,
		Rating:  rating,
		Comment: comment,
	}
	if err := s.feedbackRepo.Create(nil, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (s *communityService) ListFeedback(bookID uuid.UUID) ([]models.Feedback, error) {
	return s.feedbackRepo.ListByBook(nil, bookID)
}

func (s *communityService) FileReport(reporter uuid.UUID, reportType, reason string) (*models.Report, error) {
	if reportType == "" || reason == "" {
		return nil, E(KindValidation, "report_type and reason are required")
	}
	report := &models.Report{
		ReporterID: reporter,
		ReportType: reportType,
		Reason:     reason,
		Status:     models.ReportStatusOpen,
	}
	if err := s.reportRepo.Create(nil, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *communityService) ModerateReport(id uuid.UUID, actor Principal, status models.ReportStatus, remarks string) (*models.Report, error) {
	if !actor.IsStaff {
		return nil, E(KindAuthorization, "only staff may moderate reports")
	}
	switch status {
	case models.ReportStatusReviewed, models.ReportStatusResolved:
	default:
		return nil, E(KindValidation, "status must be reviewed or resolved")
	}

	report, err := s.reportRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "report not found")
		}
		return nil, err
	}
	if err := s.reportRepo.UpdateModeration(nil, id, status, remarks); err != nil {
		return nil, err
	}
	report.Status = status
	report.AdminRemarks = remarks
	return report, nil
}

func (s *communityService) PublishAnnouncement(actor Principal, title, message string) (*models.Announcement, error) {
	if !actor.IsStaff {
		return nil, E(KindAuthorization, "only staff may publish announcements")
	}
	if title == "" || message == "" {
		return nil, E(KindValidation, "title and message are required")
	}
	announcement := &models.Announcement{
		Title:       title,
		Message:     message,
		IsActive:    true,
		CreatedByID: actor.ID,
	}
	if err := s.announcementRepo.Create(nil, announcement); err != nil {
		return nil, err
	}
	return announcement, nil
}

func (s *communityService) ListAnnouncements() ([]models.Announcement, error) {
	return s.announcementRepo.ListActive(nil)
}
