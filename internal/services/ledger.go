package services

import (
	"bytes"
	"errors"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// SubmitInput carries a new request. ExchangeBookID is required for exchange
// requests and rejected for the other types.
type SubmitInput struct {
	BookID         uuid.UUID
	RequestType    models.TradeType
	ExchangeBookID *uuid.UUID
	Message        string
}

// RequestLedger owns book requests and their transitions. Approval invokes
// the transaction engine synchronously inside the same atomic unit, so from
// the caller's perspective approval and fulfillment are one operation.
type RequestLedger interface {
	Submit(requester uuid.UUID, in SubmitInput) (*models.BookRequest, error)
	Transition(requestID, actor uuid.UUID, newStatus models.RequestStatus) (*models.BookRequest, error)
	ListByRequester(requester uuid.UUID) ([]models.BookRequest, error)
	ListIncoming(owner uuid.UUID) ([]models.BookRequest, error)
}

type requestLedger struct {
	db       *gorm.DB
	engine   TransactionEngine
	userRepo repositories.UserRepository
	bookRepo repositories.BookRepository
	reqRepo  repositories.RequestRepository
}

// NewRequestLedger wires up the ledger's dependencies.
func NewRequestLedger(
	db *gorm.DB,
	engine TransactionEngine,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	reqRepo repositories.RequestRepository,
) RequestLedger {
	return &requestLedger{
		db:       db,
		engine:   engine,
		userRepo: userRepo,
		bookRepo: bookRepo,
		reqRepo:  reqRepo,
	}
}

// Submit validates and persists a new pending request. All invariants are
// checked against current database state with the book row locked; nothing is
// re-validated later except the exchange offer, which fulfillment re-checks.
func (s *requestLedger) Submit(requester uuid.UUID, in SubmitInput) (*models.BookRequest, error) {
	var created *models.BookRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, requester); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "user not found")
			}
			return err
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, in.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "book not found")
			}
			return err
		}

		if book.OwnerID == requester {
			return E(KindValidation, "you cannot request your own book")
		}
		if models.Availability(in.RequestType) != book.AvailableFor {
			return E(KindValidation, "book is not available for %s", in.RequestType)
		}

		dup, err := s.reqRepo.ExistsPending(tx, in.BookID, requester)
		if err != nil {
			return err
		}
		if dup {
			return E(KindValidation, "you already have a pending request for this book")
		}

		if in.RequestType == models.TradeExchange {
			if err := s.validateExchangeOffer(tx, requester, in); err != nil {
				return err
			}
		} else if in.ExchangeBookID != nil {
			return E(KindValidation, "exchange_book_id is only valid for exchange requests")
		}

		request := &models.BookRequest{
			BookID:         in.BookID,
			RequesterID:    requester,
			RequestType:    in.RequestType,
			ExchangeBookID: in.ExchangeBookID,
			Message:        in.Message,
			Status:         models.RequestStatusPending,
		}
		if err := s.reqRepo.Create(tx, request); err != nil {
			if isUniqueViolation(err) {
				// Lost the race against a concurrent submission; the partial
				// unique index on pending (book, requester) caught it.
				return E(KindValidation, "you already have a pending request for this book")
			}
			log.Printf("[ERROR] Submit: failed to create request for book %s / requester %s: %v", in.BookID, requester, err)
			return err
		}
		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Submit: request %s created (book=%s, requester=%s, type=%s)",
		created.ID, in.BookID, requester, in.RequestType)
	return created, nil
}

func (s *requestLedger) validateExchangeOffer(tx *gorm.DB, requester uuid.UUID, in SubmitInput) error {
	if in.ExchangeBookID == nil {
		return E(KindValidation, "exchange requests must offer a book")
	}
	if *in.ExchangeBookID == in.BookID {
		return E(KindValidation, "offered book must differ from the requested book")
	}
	offered, err := s.bookRepo.GetByID(tx, *in.ExchangeBookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return E(KindValidation, "offered book not found")
		}
		return err
	}
	if offered.OwnerID != requester {
		return E(KindValidation, "offered book is not owned by you")
	}
	return nil
}

// Transition moves a pending request to a terminal status. Cancellation is the
// requester's; approve/reject belong to the book's current owner. An approval
// runs fulfillment on the same transaction before returning.
func (s *requestLedger) Transition(requestID, actor uuid.UUID, newStatus models.RequestStatus) (*models.BookRequest, error) {
	var updated *models.BookRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := s.reqRepo.GetByIDForUpdate(tx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "request not found")
			}
			return err
		}

		if request.Status != models.RequestStatusPending {
			return E(KindState, "request is already %s", request.Status)
		}

		switch newStatus {
		case models.RequestStatusCancelled:
			if actor != request.RequesterID {
				return E(KindAuthorization, "only the requester may cancel a request")
			}
			if err := s.reqRepo.UpdateStatus(tx, request.ID, newStatus); err != nil {
				return err
			}

		case models.RequestStatusApproved, models.RequestStatusRejected:
			book, err := s.lockInvolvedBooks(tx, request)
			if err != nil {
				return err
			}
			if actor != book.OwnerID {
				return E(KindAuthorization, "only the book owner may approve or reject a request")
			}
			if err := s.reqRepo.UpdateStatus(tx, request.ID, newStatus); err != nil {
				return err
			}
			if newStatus == models.RequestStatusApproved {
				if _, err := s.engine.Fulfill(tx, request, book); err != nil {
					return err
				}
			}

		default:
			return E(KindState, "invalid target status %q", newStatus)
		}

		request.Status = newStatus
		updated = request
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return nil, E(KindConflict, "concurrent update on request %s, retry the transition", requestID)
		}
		log.Printf("[ERROR] Transition: transaction failed for request %s -> %s: %v", requestID, newStatus, err)
		return nil, err
	}

	log.Printf("[INFO] Transition: request %s -> %s (actor=%s)", requestID, newStatus, actor)
	return updated, nil
}

// lockInvolvedBooks locks every book row the transition may mutate, in
// ascending id order so two concurrent exchanges cross-referencing the same
// pair cannot deadlock. Returns the requested book.
func (s *requestLedger) lockInvolvedBooks(tx *gorm.DB, request *models.BookRequest) (*models.Book, error) {
	ids := []uuid.UUID{request.BookID}
	if request.RequestType == models.TradeExchange && request.ExchangeBookID != nil {
		ids = append(ids, *request.ExchangeBookID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	var requested *models.Book
	for _, id := range ids {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if id == request.BookID {
					return nil, E(KindNotFound, "book not found")
				}
				// Offered book gone since submission: fulfillment degrades,
				// nothing to lock here.
				continue
			}
			return nil, err
		}
		if book.ID == request.BookID {
			requested = book
		}
	}
	if requested == nil {
		return nil, E(KindNotFound, "book not found")
	}
	return requested, nil
}

func (s *requestLedger) ListByRequester(requester uuid.UUID) ([]models.BookRequest, error) {
	return s.reqRepo.ListByRequester(nil, requester)
}

func (s *requestLedger) ListIncoming(owner uuid.UUID) ([]models.BookRequest, error) {
	return s.reqRepo.ListByBookOwner(nil, owner)
}
