package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// WishlistIndex maps users to books they want back. The transaction engine
// only ever reads it.
type WishlistIndex interface {
	Add(user, bookID uuid.UUID) (*models.Wishlist, error)
	Remove(user, bookID uuid.UUID) error
	List(user uuid.UUID) ([]models.Wishlist, error)
}

type wishlistIndex struct {
	db           *gorm.DB
	bookRepo     repositories.BookRepository
	wishlistRepo repositories.WishlistRepository
}

func NewWishlistIndex(db *gorm.DB, bookRepo repositories.BookRepository, wishlistRepo repositories.WishlistRepository) WishlistIndex {
	return &wishlistIndex{db: db, bookRepo: bookRepo, wishlistRepo: wishlistRepo}
}

// Add subscribes the user to the book. A duplicate add is a no-op returning
// the existing entry, so clients can retry blindly.
func (s *wishlistIndex) Add(user, bookID uuid.UUID) (*models.Wishlist, error) {
	if _, err := s.bookRepo.GetByID(nil, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(KindNotFound, "book not found")
		}
		return nil, err
	}

	entry := &models.Wishlist{UserID: user, BookID: bookID}
	if err := s.wishlistRepo.Create(nil, entry); err != nil {
		if isUniqueViolation(err) {
			existing, gerr := s.wishlistRepo.GetByUserAndBook(nil, user, bookID)
			if gerr != nil {
				return nil, gerr
			}
			return existing, nil
		}
		log.Printf("[ERROR] Wishlist Add: failed to create entry for user %s / book %s: %v", user, bookID, err)
		return nil, err
	}
	return entry, nil
}

func (s *wishlistIndex) Remove(user, bookID uuid.UUID) error {
	if _, err := s.wishlistRepo.GetByUserAndBook(nil, user, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return E(KindNotFound, "wishlist entry not found")
		}
		return err
	}
	return s.wishlistRepo.Delete(nil, user, bookID)
}

func (s *wishlistIndex) List(user uuid.UUID) ([]models.Wishlist, error) {
	return s.wishlistRepo.ListByUser(nil, user)
}
