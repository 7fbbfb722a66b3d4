package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/services"
)

// errUniqueViolation mimics the postgres driver's unique-constraint error so
// the services' 23505 detection fires against the fakes too.
var errUniqueViolation = errors.New(`ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)`)

// fakeStore is a mutex-guarded in-memory database backing all fake
// repositories. The services still run their real db.Transaction units; the
// sqlite handle from newTestDB coordinates begin/commit while the fakes hold
// the state, so the code under test is identical to production except for
// the SQL layer.
type fakeStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.User
	books         map[uuid.UUID]models.Book
	requests      map[uuid.UUID]models.BookRequest
	transactions  map[uuid.UUID]models.Transaction
	wishlists     map[uuid.UUID]models.Wishlist
	notifications map[uuid.UUID]models.Notification
	feedback      map[uuid.UUID]models.Feedback
	reports       map[uuid.UUID]models.Report
	announcements map[uuid.UUID]models.Announcement
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]models.User),
		books:         make(map[uuid.UUID]models.Book),
		requests:      make(map[uuid.UUID]models.BookRequest),
		transactions:  make(map[uuid.UUID]models.Transaction),
		wishlists:     make(map[uuid.UUID]models.Wishlist),
		notifications: make(map[uuid.UUID]models.Notification),
		feedback:      make(map[uuid.UUID]models.Feedback),
		reports:       make(map[uuid.UUID]models.Report),
		announcements: make(map[uuid.UUID]models.Announcement),
	}
}

func (s *fakeStore) addUser(username string, isStaff bool) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{ID: uuid.New(), Username: username, IsStaff: isStaff}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) addBook(owner uuid.UUID, title string, tag models.Availability) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	book := models.Book{
		ID:           uuid.New(),
		OwnerID:      owner,
		Title:        title,
		AvailableFor: tag,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	s.books[book.ID] = book
	return book
}

func (s *fakeStore) addWishlist(user, book uuid.UUID) models.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := models.Wishlist{ID: uuid.New(), UserID: user, BookID: book, CreatedAt: time.Now().UTC()}
	s.wishlists[entry.ID] = entry
	return entry
}

func (s *fakeStore) book(t *testing.T, id uuid.UUID) models.Book {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[id]
	if !ok {
		t.Fatalf("book %s not in store", id)
	}
	return book
}

func (s *fakeStore) notificationsFor(user uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == user {
			out = append(out, n)
		}
	}
	return out
}

func (s *fakeStore) receivedTransactions(book uuid.UUID) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, txn := range s.transactions {
		if txn.BookID == book && txn.Status == models.TransactionStatusReceived {
			out = append(out, txn)
		}
	}
	return out
}

// fake repositories

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

type fakeBookRepo struct{ s *fakeStore }

func (r *fakeBookRepo) Create(_ *gorm.DB, book *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	book.CreatedAt = time.Now().UTC()
	book.UpdatedAt = book.CreatedAt
	r.s.books[book.ID] = *book
	return nil
}

func (r *fakeBookRepo) List(_ *gorm.DB) ([]models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	books := make([]models.Book, 0, len(r.s.books))
	for _, b := range r.s.books {
		books = append(books, b)
	}
	return books, nil
}

func (r *fakeBookRepo) ListByOwner(_ *gorm.DB, ownerID uuid.UUID) ([]models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var books []models.Book
	for _, b := range r.s.books {
		if b.OwnerID == ownerID {
			books = append(books, b)
		}
	}
	return books, nil
}

func (r *fakeBookRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &book, nil
}

func (r *fakeBookRepo) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	return r.GetByID(db, id)
}

func (r *fakeBookRepo) UpdateAttrs(_ *gorm.DB, id uuid.UUID, attrs map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range attrs {
		switch key {
		case "title":
			book.Title = value.(string)
		case "author":
			book.Author = value.(string)
		case "description":
			book.Description = value.(string)
		case "isbn":
			book.ISBN = value.(string)
		case "available_for":
			book.AvailableFor = value.(models.Availability)
		case "location_lat":
			book.LocationLat, _ = value.(*float64)
		case "location_lng":
			book.LocationLng, _ = value.(*float64)
		}
	}
	book.UpdatedAt = time.Now().UTC()
	r.s.books[id] = book
	return nil
}

func (r *fakeBookRepo) SetAvailability(_ *gorm.DB, id uuid.UUID, tag models.Availability) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	book.AvailableFor = tag
	book.UpdatedAt = time.Now().UTC()
	r.s.books[id] = book
	return nil
}

func (r *fakeBookRepo) SetOwner(_ *gorm.DB, id, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	book.OwnerID = ownerID
	book.UpdatedAt = time.Now().UTC()
	r.s.books[id] = book
	return nil
}

func (r *fakeBookRepo) Delete(_ *gorm.DB, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.books, id)
	return nil
}

type fakeRequestRepo struct{ s *fakeStore }

func (r *fakeRequestRepo) Create(_ *gorm.DB, request *models.BookRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.requests {
		if existing.BookID == request.BookID && existing.RequesterID == request.RequesterID &&
			existing.Status == models.RequestStatusPending {
			return errUniqueViolation
		}
	}
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now().UTC()
	request.UpdatedAt = request.CreatedAt
	r.s.requests[request.ID] = *request
	return nil
}

func (r *fakeRequestRepo) GetByIDForUpdate(_ *gorm.DB, id uuid.UUID) (*models.BookRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &request, nil
}

func (r *fakeRequestRepo) ExistsPending(_ *gorm.DB, bookID, requesterID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, request := range r.s.requests {
		if request.BookID == bookID && request.RequesterID == requesterID &&
			request.Status == models.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) ExistsPendingForBook(_ *gorm.DB, bookID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, request := range r.s.requests {
		if request.BookID == bookID && request.Status == models.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) UpdateStatus(_ *gorm.DB, id uuid.UUID, status models.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	request.Status = status
	request.UpdatedAt = time.Now().UTC()
	r.s.requests[id] = request
	return nil
}

func (r *fakeRequestRepo) ListByRequester(_ *gorm.DB, requesterID uuid.UUID) ([]models.BookRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var requests []models.BookRequest
	for _, request := range r.s.requests {
		if request.RequesterID == requesterID {
			requests = append(requests, request)
		}
	}
	return requests, nil
}

func (r *fakeRequestRepo) ListByBookOwner(_ *gorm.DB, ownerID uuid.UUID) ([]models.BookRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var requests []models.BookRequest
	for _, request := range r.s.requests {
		if book, ok := r.s.books[request.BookID]; ok && book.OwnerID == ownerID {
			requests = append(requests, request)
		}
	}
	return requests, nil
}

type fakeTransactionRepo struct{ s *fakeStore }

func (r *fakeTransactionRepo) Create(_ *gorm.DB, txn *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.CreatedAt = time.Now().UTC()
	txn.UpdatedAt = txn.CreatedAt
	r.s.transactions[txn.ID] = *txn
	return nil
}

func (r *fakeTransactionRepo) GetByIDForUpdate(_ *gorm.DB, id uuid.UUID) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	txn.Book = r.s.books[txn.BookID]
	return &txn, nil
}

func (r *fakeTransactionRepo) ExistsReceived(_ *gorm.DB, bookID, borrowerID, ownerID uuid.UUID, tradeType models.TradeType) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, txn := range r.s.transactions {
		if txn.BookID == bookID && txn.BorrowerID == borrowerID && txn.OwnerID == ownerID &&
			txn.TransactionType == tradeType && txn.Status == models.TransactionStatusReceived {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTransactionRepo) ExistsReceivedForBook(_ *gorm.DB, bookID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, txn := range r.s.transactions {
		if txn.BookID == bookID && txn.Status == models.TransactionStatusReceived {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTransactionRepo) MarkReturned(_ *gorm.DB, id uuid.UUID, endDate time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[id]
	if !ok || txn.Status != models.TransactionStatusReceived {
		return nil // mirrors the guarded UPDATE matching zero rows
	}
	txn.Status = models.TransactionStatusReturned
	txn.EndDate = &endDate
	txn.UpdatedAt = time.Now().UTC()
	r.s.transactions[id] = txn
	return nil
}

func (r *fakeTransactionRepo) ListByUser(_ *gorm.DB, userID uuid.UUID) ([]models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var txns []models.Transaction
	for _, txn := range r.s.transactions {
		if txn.OwnerID == userID || txn.BorrowerID == userID {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

type fakeWishlistRepo struct{ s *fakeStore }

func (r *fakeWishlistRepo) Create(_ *gorm.DB, entry *models.Wishlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.wishlists {
		if existing.UserID == entry.UserID && existing.BookID == entry.BookID {
			return errUniqueViolation
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	r.s.wishlists[entry.ID] = *entry
	return nil
}

func (r *fakeWishlistRepo) GetByUserAndBook(_ *gorm.DB, userID, bookID uuid.UUID) (*models.Wishlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.wishlists {
		if entry.UserID == userID && entry.BookID == bookID {
			e := entry
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWishlistRepo) Delete(_ *gorm.DB, userID, bookID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, entry := range r.s.wishlists {
		if entry.UserID == userID && entry.BookID == bookID {
			delete(r.s.wishlists, id)
		}
	}
	return nil
}

func (r *fakeWishlistRepo) ListByUser(_ *gorm.DB, userID uuid.UUID) ([]models.Wishlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []models.Wishlist
	for _, entry := range r.s.wishlists {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeWishlistRepo) SubscriberIDs(_ *gorm.DB, bookID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for _, entry := range r.s.wishlists {
		if entry.BookID == bookID {
			ids = append(ids, entry.UserID)
		}
	}
	return ids, nil
}

type fakeNotificationRepo struct{ s *fakeStore }

func (r *fakeNotificationRepo) Create(_ *gorm.DB, notification *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	notification.CreatedAt = time.Now().UTC()
	r.s.notifications[notification.ID] = *notification
	return nil
}

func (r *fakeNotificationRepo) CreateBatch(db *gorm.DB, notifications []models.Notification) error {
	for i := range notifications {
		if err := r.Create(db, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification, ok := r.s.notifications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &notification, nil
}

func (r *fakeNotificationRepo) MarkRead(_ *gorm.DB, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification, ok := r.s.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	notification.IsRead = true
	r.s.notifications[id] = notification
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ *gorm.DB, userID uuid.UUID) ([]models.Notification, error) {
	return r.s.notificationsFor(userID), nil
}

type fakeFeedbackRepo struct{ s *fakeStore }

func (r *fakeFeedbackRepo) Create(_ *gorm.DB, feedback *models.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	feedback.CreatedAt = time.Now().UTC()
	r.s.feedback[feedback.ID] = *feedback
	return nil
}

func (r *fakeFeedbackRepo) ListByBook(_ *gorm.DB, bookID uuid.UUID) ([]models.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var feedback []models.Feedback
	for _, entry := range r.s.feedback {
		if entry.BookID == bookID {
			feedback = append(feedback, entry)
		}
	}
	return feedback, nil
}

type fakeReportRepo struct{ s *fakeStore }

func (r *fakeReportRepo) Create(_ *gorm.DB, report *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now().UTC()
	report.UpdatedAt = report.CreatedAt
	r.s.reports[report.ID] = *report
	return nil
}

func (r *fakeReportRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

func (r *fakeReportRepo) UpdateModeration(_ *gorm.DB, id uuid.UUID, status models.ReportStatus, remarks string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	report.Status = status
	report.AdminRemarks = remarks
	report.UpdatedAt = time.Now().UTC()
	r.s.reports[id] = report
	return nil
}

type fakeAnnouncementRepo struct{ s *fakeStore }

func (r *fakeAnnouncementRepo) Create(_ *gorm.DB, announcement *models.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if announcement.ID == uuid.Nil {
		announcement.ID = uuid.New()
	}
	announcement.CreatedAt = time.Now().UTC()
	r.s.announcements[announcement.ID] = *announcement
	return nil
}

func (r *fakeAnnouncementRepo) ListActive(_ *gorm.DB) ([]models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var announcements []models.Announcement
	for _, announcement := range r.s.announcements {
		if announcement.IsActive {
			announcements = append(announcements, announcement)
		}
	}
	return announcements, nil
}

// newTestDB opens an in-memory sqlite handle used purely as a transaction
// coordinator for db.Transaction units; the fakes never emit SQL through it.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

// env wires the real services over the fake repositories.
type env struct {
	store         *fakeStore
	registry      services.BookRegistry
	engine        services.TransactionEngine
	ledger        services.RequestLedger
	wishlist      services.WishlistIndex
	notifications services.NotificationSink
	community     services.CommunityService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	store := newFakeStore()

	userRepo := &fakeUserRepo{s: store}
	bookRepo := &fakeBookRepo{s: store}
	requestRepo := &fakeRequestRepo{s: store}
	transactionRepo := &fakeTransactionRepo{s: store}
	wishlistRepo := &fakeWishlistRepo{s: store}
	notificationRepo := &fakeNotificationRepo{s: store}
	feedbackRepo := &fakeFeedbackRepo{s: store}
	reportRepo := &fakeReportRepo{s: store}
	announcementRepo := &fakeAnnouncementRepo{s: store}

	registry := services.NewBookRegistry(db, userRepo, bookRepo, requestRepo, transactionRepo)
	engine := services.NewTransactionEngine(db, registry, bookRepo, transactionRepo, wishlistRepo, notificationRepo)
	ledger := services.NewRequestLedger(db, engine, userRepo, bookRepo, requestRepo)

	return &env{
		store:         store,
		registry:      registry,
		engine:        engine,
		ledger:        ledger,
		wishlist:      services.NewWishlistIndex(db, bookRepo, wishlistRepo),
		notifications: services.NewNotificationSink(db, notificationRepo),
		community:     services.NewCommunityService(db, bookRepo, feedbackRepo, reportRepo, announcementRepo),
	}
}
