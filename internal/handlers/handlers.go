package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jacoblal12/booknest-backend/internal/middleware"
	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/services"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Registry      services.BookRegistry
	Ledger        services.RequestLedger
	Engine        services.TransactionEngine
	Wishlist      services.WishlistIndex
	Notifications services.NotificationSink
	Community     services.CommunityService
}

type apiHandler struct {
	svc Services
}

// RegisterRoutes mounts the API under /api behind the auth middleware.
func RegisterRoutes(r *gin.Engine, jwtSecret string, svc Services) {
	h := &apiHandler{svc: svc}

	api := r.Group("/api", middleware.Authenticate(jwtSecret))

	// Book registry
	api.POST("/books", h.createBook)
	api.GET("/books", h.listBooks)
	api.GET("/books/:id", h.getBook)
	api.PUT("/books/:id", h.updateBook)
	api.DELETE("/books/:id", h.deleteBook)

	// Request ledger
	api.POST("/bookrequests", h.submitRequest)
	api.PATCH("/bookrequests/:id", h.transitionRequest)
	api.GET("/bookrequests/my", h.listMyRequests)
	api.GET("/bookrequests/incoming", h.listIncomingRequests)

	// Transaction engine
	api.PATCH("/transactions/:id", h.transitionTransaction)
	api.GET("/transactions/my", h.listMyTransactions)

	h.registerCommunityRoutes(api)
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindState, services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError maps domain error kinds to HTTP statuses. Non-domain errors
// are logged and hidden behind a generic server fault.
func respondError(c *gin.Context, err error) {
	if kind := services.KindOf(err); kind != "" {
		c.JSON(statusForKind(kind), gin.H{"error": string(kind), "message": err.Error()})
		return
	}
	log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

type bookRequestBody struct {
	Title        string   `json:"title" binding:"required"`
	Author       string   `json:"author"`
	Description  string   `json:"description"`
	ISBN         string   `json:"isbn"`
	AvailableFor string   `json:"available_for" binding:"required"`
	LocationLat  *float64 `json:"location_lat"`
	LocationLng  *float64 `json:"location_lng"`
}

func (b bookRequestBody) attrs() services.BookAttrs {
	return services.BookAttrs{
		Title:        b.Title,
		Author:       b.Author,
		Description:  b.Description,
		ISBN:         b.ISBN,
		AvailableFor: models.Availability(b.AvailableFor),
		LocationLat:  b.LocationLat,
		LocationLng:  b.LocationLng,
	}
}

func (h *apiHandler) createBook(c *gin.Context) {
	var body bookRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	book, err := h.svc.Registry.CreateBook(principal.ID, body.attrs())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *apiHandler) listBooks(c *gin.Context) {
	if ownerParam := c.Query("owner"); ownerParam != "" {
		ownerID, err := uuid.Parse(ownerParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid owner id"})
			return
		}
		books, err := h.svc.Registry.ListBooksByOwner(ownerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, books)
		return
	}

	books, err := h.svc.Registry.ListBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *apiHandler) getBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	book, err := h.svc.Registry.GetBook(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *apiHandler) updateBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body bookRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	book, err := h.svc.Registry.UpdateBook(id, principal.ID, body.attrs())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *apiHandler) deleteBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	principal := middleware.CurrentPrincipal(c)
	if err := h.svc.Registry.DeleteBook(id, principal.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type submitRequestBody struct {
	BookID         string  `json:"book_id" binding:"required,uuid"`
	RequestType    string  `json:"request_type" binding:"required"`
	ExchangeBookID *string `json:"exchange_book_id"`
	Message        string  `json:"message"`
}

func (h *apiHandler) submitRequest(c *gin.Context) {
	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}

	bookID, err := uuid.Parse(body.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid book id"})
		return
	}
	in := services.SubmitInput{
		BookID:      bookID,
		RequestType: models.TradeType(body.RequestType),
		Message:     body.Message,
	}
	if body.ExchangeBookID != nil {
		exchangeID, err := uuid.Parse(*body.ExchangeBookID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid exchange book id"})
			return
		}
		in.ExchangeBookID = &exchangeID
	}

	principal := middleware.CurrentPrincipal(c)
	request, err := h.svc.Ledger.Submit(principal.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func (h *apiHandler) transitionRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	request, err := h.svc.Ledger.Transition(id, principal.ID, models.RequestStatus(body.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *apiHandler) listMyRequests(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	requests, err := h.svc.Ledger.ListByRequester(principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *apiHandler) listIncomingRequests(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	requests, err := h.svc.Ledger.ListIncoming(principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// transitionTransaction accepts only a move to "returned"; everything else on
// a transaction is engine-internal.
func (h *apiHandler) transitionTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}
	if models.TransactionStatus(body.Status) != models.TransactionStatusReturned {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "only status 'returned' may be requested"})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	txn, err := h.svc.Engine.MarkReturned(id, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *apiHandler) listMyTransactions(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	txns, err := h.svc.Engine.ListUserTransactions(principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}
