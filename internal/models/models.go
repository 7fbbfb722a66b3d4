package models

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the book's current offer mode. "none" means the book is
// locked in an active transaction or was donated/exchanged away.
type Availability string

const (
	AvailabilityRent     Availability = "rent"
	AvailabilityExchange Availability = "exchange"
	AvailabilityDonate   Availability = "donate"
	AvailabilityNone     Availability = "none"
)

// TradeType is shared between BookRequest.RequestType and
// Transaction.TransactionType: a transaction always carries the type of the
// request it fulfilled.
type TradeType string

const (
	TradeRent     TradeType = "rent"
	TradeExchange TradeType = "exchange"
	TradeDonate   TradeType = "donate"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

type TransactionStatus string

const (
	TransactionStatusReceived  TransactionStatus = "received"
	TransactionStatusReturned  TransactionStatus = "returned"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusResolved ReportStatus = "resolved"
)

// User mirrors the identity provider's principal. Rows are provisioned by the
// auth service; this backend only reads them.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Username string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	IsStaff  bool      `gorm:"not null;default:false" json:"is_staff"`
}

type Book struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner        User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Author       string       `gorm:"size:255" json:"author"`
	Description  string       `gorm:"type:text" json:"description"`
	ISBN         string       `gorm:"size:20" json:"isbn"`
	AvailableFor Availability `gorm:"type:availability;not null;index" json:"available_for"`
	LocationLat  *float64     `gorm:"type:decimal(9,6)" json:"location_lat"`
	LocationLng  *float64     `gorm:"type:decimal(9,6)" json:"location_lng"`
	CreatedAt    time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

// BookRequest is one user's ask against one book. A partial unique index
// (uniq_pending_request on (book_id, requester_id) where status = 'pending')
// backs the duplicate-pending invariant at the database level.
type BookRequest struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"book_id"`
	Book           Book          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	RequesterID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester      User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	RequestType    TradeType     `gorm:"type:trade_type;not null" json:"request_type"`
	ExchangeBookID *uuid.UUID    `gorm:"type:uuid" json:"exchange_book_id"`
	ExchangeBook   *Book         `gorm:"foreignKey:ExchangeBookID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Message        string        `gorm:"type:text" json:"message"`
	Status         RequestStatus `gorm:"type:request_status;not null;default:pending;index" json:"status"`
	CreatedAt      time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

// Transaction is the durable record of a fulfilled request. OwnerID is the
// book's owner at fulfillment time; ownership may move afterwards.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"book_id"`
	Book            Book              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	OwnerID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"owner_id"`
	BorrowerID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"borrower_id"`
	TransactionType TradeType         `gorm:"type:trade_type;not null" json:"transaction_type"`
	Status          TransactionStatus `gorm:"type:transaction_status;not null;default:received;index" json:"status"`
	StartDate       time.Time         `gorm:"not null" json:"start_date"`
	EndDate         *time.Time        `json:"end_date"`
	CreatedAt       time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

type Wishlist struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_wishlist_user_book" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_wishlist_user_book" json:"book_id"`
	Book      Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	Book      Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

type Report struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReporterID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Reporter     User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReportType   string       `gorm:"size:50;not null" json:"report_type"`
	Reason       string       `gorm:"type:text;not null" json:"reason"`
	Status       ReportStatus `gorm:"type:report_status;not null;default:open;index" json:"status"`
	AdminRemarks string       `gorm:"type:text" json:"admin_remarks"`
	CreatedAt    time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

type Announcement struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}
