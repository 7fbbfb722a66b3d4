package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// BookAttrs carries the owner-editable fields of a book listing.
type BookAttrs struct {
	Title        string
	Author       string
	Description  string
	ISBN         string
	AvailableFor models.Availability
	LocationLat  *float64
	LocationLng  *float64
}

// BookRegistry owns book records and their availability state. SetAvailability
// and TransferOwnership run under a caller-held transaction; they are invoked
// only by the transaction engine and enforce nothing beyond a valid tag.
type BookRegistry interface {
	CreateBook(owner uuid.UUID, attrs BookAttrs) (*models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	ListBooks() ([]models.Book, error)
	ListBooksByOwner(owner uuid.UUID) ([]models.Book, error)
	UpdateBook(id, actor uuid.UUID, attrs BookAttrs) (*models.Book, error)
	DeleteBook(id, actor uuid.UUID) error

	SetAvailability(tx *gorm.DB, bookID uuid.UUID, tag models.Availability) error
	TransferOwnership(tx *gorm.DB, bookID, newOwner uuid.UUID) error
}

type bookRegistry struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	bookRepo repositories.BookRepository
	reqRepo  repositories.RequestRepository
	txnRepo  repositories.TransactionRepository
}

// NewBookRegistry wires up the registry's dependencies.
func NewBookRegistry(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	reqRepo repositories.RequestRepository,
	txnRepo repositories.TransactionRepository,
) BookRegistry {
	return &bookRegistry{
		db:       db,
		userRepo: userRepo,
		bookRepo: bookRepo,
		reqRepo:  reqRepo,
		txnRepo:  txnRepo,
	}
}

// isOfferTag reports whether tag is one of the three active offer modes.
// "none" is reserved for the transaction engine.
func isOfferTag(tag models.Availability) bool {
	switch tag {
	case models.AvailabilityRent, models.AvailabilityExchange, models.AvailabilityDonate:
		return true
	}
	return false
}

// CreateBook lists a new book under the given owner. The availability tag must
// be an active offer mode: a book is never born locked.
func (s *bookRegistry) CreateBook(owner uuid.UUID, attrs BookAttrs) (*models.Book, error) {
	if attrs.Title == "" {
		return nil, E(KindValidation, "title is required")
	}
	if !isOfferTag(attrs.AvailableFor) {
		return nil, E(KindValidation, "available_for must be one of rent, exchange, donate")
	}
	if _, err := s.userRepo.GetByID(nil, owner); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "user not found")
		}
		return nil, err
	}

	book := &models.Book{
		OwnerID:      owner,
		Title:        attrs.Title,
		Author:       attrs.Author,
		Description:  attrs.Description,
		ISBN:         attrs.ISBN,
		AvailableFor: attrs.AvailableFor,
		LocationLat:  attrs.LocationLat,
		LocationLng:  attrs.LocationLng,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		log.Printf("[ERROR] CreateBook: failed to create book record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%s) for owner %s, available_for=%s", book.Title, book.ID, owner, book.AvailableFor)
	return book, nil
}

func (s *bookRegistry) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "book not found")
		}
		return nil, err
	}
	return book, nil
}

func (s *bookRegistry) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

func (s *bookRegistry) ListBooksByOwner(owner uuid.UUID) ([]models.Book, error) {
	return s.bookRepo.ListByOwner(nil, owner)
}

// UpdateBook lets the owner edit a listing. Availability may only be moved
// between active offer modes: a locked book (available_for = none) stays
// locked until the engine releases it, and "none" itself is never accepted
// from a client.
func (s *bookRegistry) UpdateBook(id, actor uuid.UUID, attrs BookAttrs) (*models.Book, error) {
	if attrs.Title == "" {
		return nil, E(KindValidation, "title is required")
	}
	if !isOfferTag(attrs.AvailableFor) {
		return nil, E(KindValidation, "available_for must be one of rent, exchange, donate")
	}

	var updated *models.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "book not found")
			}
			return err
		}
		if book.OwnerID != actor {
			return E(KindAuthorization, "only the owner may edit this book")
		}
		if book.AvailableFor == models.AvailabilityNone && attrs.AvailableFor != models.AvailabilityNone {
			return E(KindState, "book is locked in an active transaction")
		}

		if err := s.bookRepo.UpdateAttrs(tx, id, map[string]interface{}{
			"title":         attrs.Title,
			"author":        attrs.Author,
			"description":   attrs.Description,
			"isbn":          attrs.ISBN,
			"available_for": attrs.AvailableFor,
			"location_lat":  attrs.LocationLat,
			"location_lng":  attrs.LocationLng,
		}); err != nil {
			log.Printf("[ERROR] UpdateBook: failed to update book %s: %v", id, err)
			return err
		}

		reloaded, err := s.bookRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a listing. Refused while any pending request or received
// transaction still references the book; once nothing open points at it, the
// row and its satellite records go together via FK cascade.
func (s *bookRegistry) DeleteBook(id, actor uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "book not found")
			}
			return err
		}
		if book.OwnerID != actor {
			return E(KindAuthorization, "only the owner may delete this book")
		}

		pending, err := s.reqRepo.ExistsPendingForBook(tx, id)
		if err != nil {
			return err
		}
		if pending {
			return E(KindState, "book has pending requests")
		}
		active, err := s.txnRepo.ExistsReceivedForBook(tx, id)
		if err != nil {
			return err
		}
		if active {
			return E(KindState, "book is part of an active transaction")
		}

		if err := s.bookRepo.Delete(tx, id); err != nil {
			log.Printf("[ERROR] DeleteBook: failed to delete book %s: %v", id, err)
			return err
		}
		log.Printf("[INFO] DeleteBook: deleted book %s (owner %s)", id, actor)
		return nil
	})
}

// SetAvailability stamps a new availability tag on the book. Caller holds the
// transaction and the row lock.
func (s *bookRegistry) SetAvailability(tx *gorm.DB, bookID uuid.UUID, tag models.Availability) error {
	if tag != models.AvailabilityNone && !isOfferTag(tag) {
		return E(KindValidation, "invalid availability tag %q", tag)
	}
	return s.bookRepo.SetAvailability(tx, bookID, tag)
}

// TransferOwnership reassigns the book to newOwner. Caller holds the
// transaction and the row lock.
func (s *bookRegistry) TransferOwnership(tx *gorm.DB, bookID, newOwner uuid.UUID) error {
	return s.bookRepo.SetOwner(tx, bookID, newOwner)
}
