package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Jacoblal12/booknest-backend/internal/models"
)

type UserRepository interface {
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	ListByOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	UpdateAttrs(db *gorm.DB, id uuid.UUID, attrs map[string]interface{}) error
	SetAvailability(db *gorm.DB, id uuid.UUID, tag models.Availability) error
	SetOwner(db *gorm.DB, id, ownerID uuid.UUID) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type RequestRepository interface {
	Create(db *gorm.DB, request *models.BookRequest) error
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.BookRequest, error)
	ExistsPending(db *gorm.DB, bookID, requesterID uuid.UUID) (bool, error)
	ExistsPendingForBook(db *gorm.DB, bookID uuid.UUID) (bool, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, status models.RequestStatus) error
	ListByRequester(db *gorm.DB, requesterID uuid.UUID) ([]models.BookRequest, error)
	ListByBookOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.BookRequest, error)
}

type TransactionRepository interface {
	Create(db *gorm.DB, txn *models.Transaction) error
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Transaction, error)
	ExistsReceived(db *gorm.DB, bookID, borrowerID, ownerID uuid.UUID, tradeType models.TradeType) (bool, error)
	ExistsReceivedForBook(db *gorm.DB, bookID uuid.UUID) (bool, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, endDate time.Time) error
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Transaction, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Order("created_at DESC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListByOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) UpdateAttrs(db *gorm.DB, id uuid.UUID, attrs map[string]interface{}) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Updates(attrs).
		Error
}

func (r *bookRepository) SetAvailability(db *gorm.DB, id uuid.UUID, tag models.Availability) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("available_for", tag).
		Error
}

func (r *bookRepository) SetOwner(db *gorm.DB, id, ownerID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("owner_id", ownerID).
		Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(db *gorm.DB, request *models.BookRequest) error {
	if db == nil {
		db = r.db
	}
	return db.Create(request).Error
}

func (r *requestRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.BookRequest, error) {
	if db == nil {
		db = r.db
	}
	var request models.BookRequest
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ExistsPending(db *gorm.DB, bookID, requesterID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.BookRequest{}).
		Where("book_id = ? AND requester_id = ? AND status = ?", bookID, requesterID, models.RequestStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *requestRepository) ExistsPendingForBook(db *gorm.DB, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.BookRequest{}).
		Where("book_id = ? AND status = ?", bookID, models.RequestStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *requestRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status models.RequestStatus) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.BookRequest{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *requestRepository) ListByRequester(db *gorm.DB, requesterID uuid.UUID) ([]models.BookRequest, error) {
	if db == nil {
		db = r.db
	}
	var requests []models.BookRequest
	if err := db.Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByBookOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.BookRequest, error) {
	if db == nil {
		db = r.db
	}
	var requests []models.BookRequest
	err := db.
		Joins("JOIN books ON books.id = book_requests.book_id").
		Where("books.owner_id = ?", ownerID).
		Order("book_requests.created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(db *gorm.DB, txn *models.Transaction) error {
	if db == nil {
		db = r.db
	}
	return db.Create(txn).Error
}

func (r *transactionRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Transaction, error) {
	if db == nil {
		db = r.db
	}
	var txn models.Transaction
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Book").
		First(&txn, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) ExistsReceived(db *gorm.DB, bookID, borrowerID, ownerID uuid.UUID, tradeType models.TradeType) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Transaction{}).
		Where("book_id = ? AND borrower_id = ? AND owner_id = ? AND transaction_type = ? AND status = ?",
			bookID, borrowerID, ownerID, tradeType, models.TransactionStatusReceived).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *transactionRepository) ExistsReceivedForBook(db *gorm.DB, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Transaction{}).
		Where("book_id = ? AND status = ?", bookID, models.TransactionStatusReceived).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *transactionRepository) MarkReturned(db *gorm.DB, id uuid.UUID, endDate time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusReceived).
		Updates(map[string]interface{}{
			"status":   models.TransactionStatusReturned,
			"end_date": endDate,
		}).Error
}

func (r *transactionRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Transaction, error) {
	if db == nil {
		db = r.db
	}
	var txns []models.Transaction
	err := db.Where("owner_id = ? OR borrower_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
