package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
)

// TransactionEngine turns approved requests into transactions and applies the
// ownership/availability side effects. Fulfill runs under the ledger's
// transaction so that approval and fulfillment commit as one unit;
// MarkReturned opens its own.
type TransactionEngine interface {
	Fulfill(tx *gorm.DB, request *models.BookRequest, book *models.Book) (*models.Transaction, error)
	MarkReturned(transactionID, actor uuid.UUID) (*models.Transaction, error)
	ListUserTransactions(userID uuid.UUID) ([]models.Transaction, error)
}

// fulfillFunc applies the type-specific side effects of one trade type.
type fulfillFunc func(tx *gorm.DB, request *models.BookRequest, book *models.Book) error

type transactionEngine struct {
	db           *gorm.DB
	registry     BookRegistry
	bookRepo     repositories.BookRepository
	txnRepo      repositories.TransactionRepository
	wishlistRepo repositories.WishlistRepository
	notifRepo    repositories.NotificationRepository

	// effects is the fixed dispatch table over trade types. Built once in the
	// constructor so every branch is reachable the same way.
	effects map[models.TradeType]fulfillFunc
}

// NewTransactionEngine wires up the engine's dependencies.
func NewTransactionEngine(
	db *gorm.DB,
	registry BookRegistry,
	bookRepo repositories.BookRepository,
	txnRepo repositories.TransactionRepository,
	wishlistRepo repositories.WishlistRepository,
	notifRepo repositories.NotificationRepository,
) TransactionEngine {
	e := &transactionEngine{
		db:           db,
		registry:     registry,
		bookRepo:     bookRepo,
		txnRepo:      txnRepo,
		wishlistRepo: wishlistRepo,
		notifRepo:    notifRepo,
	}
	e.effects = map[models.TradeType]fulfillFunc{
		models.TradeRent:     e.fulfillRent,
		models.TradeDonate:   e.fulfillDonate,
		models.TradeExchange: e.fulfillExchange,
	}
	return e
}

// Fulfill creates the transaction record for an approved request and applies
// the type-specific effects, all on the caller's transaction handle. If a
// received transaction already exists for the (book, borrower, owner, type)
// tuple the approval event is a replay and Fulfill is a no-op, returning
// (nil, nil).
func (e *transactionEngine) Fulfill(tx *gorm.DB, request *models.BookRequest, book *models.Book) (*models.Transaction, error) {
	exists, err := e.txnRepo.ExistsReceived(tx, book.ID, request.RequesterID, book.OwnerID, request.RequestType)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Printf("[WARN] Fulfill: received transaction already exists for book %s / borrower %s / type %s, skipping replay",
			book.ID, request.RequesterID, request.RequestType)
		return nil, nil
	}

	effect, ok := e.effects[request.RequestType]
	if !ok {
		return nil, E(KindValidation, "unknown request type %q", request.RequestType)
	}

	// The book may have been locked or re-tagged by another approval since
	// this request went pending. The caller holds the row lock, so this check
	// is decisive: the losing approval of two concurrent ones fails here.
	if book.AvailableFor != models.Availability(request.RequestType) {
		return nil, E(KindState, "book is no longer available for %s", request.RequestType)
	}

	txn := &models.Transaction{
		BookID:          book.ID,
		OwnerID:         book.OwnerID,
		BorrowerID:      request.RequesterID,
		TransactionType: request.RequestType,
		Status:          models.TransactionStatusReceived,
		StartDate:       time.Now().UTC(),
	}
	if err := e.txnRepo.Create(tx, txn); err != nil {
		log.Printf("[ERROR] Fulfill: failed to create transaction for request %s: %v", request.ID, err)
		return nil, err
	}

	if err := effect(tx, request, book); err != nil {
		return nil, err
	}

	log.Printf("[INFO] Fulfill: transaction %s created (book=%s, borrower=%s, type=%s)",
		txn.ID, book.ID, request.RequesterID, request.RequestType)
	return txn, nil
}

// fulfillRent locks the book for the duration of the loan. Ownership stays
// with the lender.
func (e *transactionEngine) fulfillRent(tx *gorm.DB, request *models.BookRequest, book *models.Book) error {
	return e.registry.SetAvailability(tx, book.ID, models.AvailabilityNone)
}

// fulfillDonate hands the book over permanently.
func (e *transactionEngine) fulfillDonate(tx *gorm.DB, request *models.BookRequest, book *models.Book) error {
	if err := e.registry.TransferOwnership(tx, book.ID, request.RequesterID); err != nil {
		return err
	}
	return e.registry.SetAvailability(tx, book.ID, models.AvailabilityNone)
}

// fulfillExchange swaps ownership of the two books. The offered book is
// re-validated here: submission-time checks may be stale by approval time. An
// invalid offer does not fail the approval: the books stay untouched and the
// original owner gets a notification to settle the exchange manually.
func (e *transactionEngine) fulfillExchange(tx *gorm.DB, request *models.BookRequest, book *models.Book) error {
	offered, err := e.lockOfferedBook(tx, request)
	if err != nil {
		return err
	}
	if offered == nil || offered.OwnerID != request.RequesterID || offered.ID == book.ID {
		log.Printf("[WARN] fulfillExchange: offered book for request %s is missing or no longer owned by requester %s, degrading to notification",
			request.ID, request.RequesterID)
		return e.notifRepo.Create(tx, &models.Notification{
			UserID: book.OwnerID,
			Message: fmt.Sprintf(
				"Exchange request %s was approved but the offered book is missing or no longer owned by the requester. Please complete the exchange manually.",
				request.ID),
		})
	}

	originalOwner := book.OwnerID
	if err := e.registry.TransferOwnership(tx, book.ID, request.RequesterID); err != nil {
		return err
	}
	if err := e.registry.TransferOwnership(tx, offered.ID, originalOwner); err != nil {
		return err
	}
	if err := e.registry.SetAvailability(tx, book.ID, models.AvailabilityNone); err != nil {
		return err
	}
	return e.registry.SetAvailability(tx, offered.ID, models.AvailabilityNone)
}

// lockOfferedBook fetches the exchange offer under the row lock the ledger
// already holds (it locks both books of the pair in ascending id order before
// fulfillment starts). A missing offer is reported as nil, not an error.
func (e *transactionEngine) lockOfferedBook(tx *gorm.DB, request *models.BookRequest) (*models.Book, error) {
	if request.ExchangeBookID == nil {
		return nil, nil
	}
	offered, err := e.bookRepo.GetByIDForUpdate(tx, *request.ExchangeBookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return offered, nil
}

// MarkReturned closes out a rent transaction in one atomic unit: status
// returned, end date stamped, book availability restored. Wishlist fan-out
// happens after commit with at-least-once semantics: a failed fan-out is
// logged, never rolled into the return.
func (e *transactionEngine) MarkReturned(transactionID, actor uuid.UUID) (*models.Transaction, error) {
	var (
		updated     *models.Transaction
		bookTitle   string
		subscribers []uuid.UUID
	)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		txn, err := e.txnRepo.GetByIDForUpdate(tx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return E(KindNotFound, "transaction not found")
			}
			return err
		}
		if actor != txn.BorrowerID && actor != txn.OwnerID {
			return E(KindAuthorization, "only the borrower or the owner may mark this transaction returned")
		}
		if txn.TransactionType != models.TradeRent {
			return E(KindState, "only rent transactions can be returned")
		}
		if txn.Status != models.TransactionStatusReceived {
			return E(KindState, "transaction is not open")
		}

		now := time.Now().UTC()
		if err := e.txnRepo.MarkReturned(tx, txn.ID, now); err != nil {
			log.Printf("[ERROR] MarkReturned: failed to mark transaction %s returned: %v", txn.ID, err)
			return err
		}
		if err := e.registry.SetAvailability(tx, txn.BookID, models.AvailabilityRent); err != nil {
			log.Printf("[ERROR] MarkReturned: failed to restore availability of book %s: %v", txn.BookID, err)
			return err
		}

		subs, err := e.wishlistRepo.SubscriberIDs(tx, txn.BookID)
		if err != nil {
			return err
		}
		subscribers = subs
		bookTitle = txn.Book.Title

		txn.Status = models.TransactionStatusReturned
		txn.EndDate = &now
		updated = txn
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return nil, E(KindConflict, "concurrent update on transaction %s, retry the transition", transactionID)
		}
		return nil, err
	}

	e.notifyWishlistSubscribers(subscribers, bookTitle)

	log.Printf("[INFO] MarkReturned: transaction %s returned by %s, %d wishlist subscriber(s) notified",
		transactionID, actor, len(subscribers))
	return updated, nil
}

// notifyWishlistSubscribers batch-inserts one notification per subscriber.
// Runs outside the returning transaction; duplicates are preferred over lost
// notices if the caller retries after a fan-out failure.
func (e *transactionEngine) notifyWishlistSubscribers(subscribers []uuid.UUID, bookTitle string) {
	if len(subscribers) == 0 {
		return
	}
	notifications := make([]models.Notification, 0, len(subscribers))
	for _, userID := range subscribers {
		notifications = append(notifications, models.Notification{
			UserID:  userID,
			Message: fmt.Sprintf("The book '%s' is now available again!", bookTitle),
		})
	}
	if err := e.notifRepo.CreateBatch(nil, notifications); err != nil {
		log.Printf("[ERROR] notifyWishlistSubscribers: failed to fan out %d notification(s): %v", len(notifications), err)
	}
}

func (e *transactionEngine) ListUserTransactions(userID uuid.UUID) ([]models.Transaction, error) {
	return e.txnRepo.ListByUser(nil, userID)
}
