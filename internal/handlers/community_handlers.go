package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jacoblal12/booknest-backend/internal/middleware"
	"github.com/Jacoblal12/booknest-backend/internal/models"
	"github.com/Jacoblal12/booknest-backend/internal/services"
)

func (h *apiHandler) registerCommunityRoutes(api *gin.RouterGroup) {
	// Wishlist
	api.POST("/wishlist", h.addWishlist)
	api.GET("/wishlist", h.listWishlist)
	api.DELETE("/wishlist/:book_id", h.removeWishlist)

	// Notifications
	api.GET("/notifications", h.listNotifications)
	api.POST("/notifications/:id/read", h.markNotificationRead)

	// Feedback
	api.POST("/books/:id/feedback", h.leaveFeedback)
	api.GET("/books/:id/feedback", h.listFeedback)

	// Reports and announcements
	api.POST("/reports", h.fileReport)
	api.PATCH("/reports/:id", h.moderateReport)
	api.GET("/announcements", h.listAnnouncements)
	api.POST("/announcements", h.publishAnnouncement)
}

type wishlistBody struct {
	BookID string `json:"book_id" binding:"required,uuid"`
}

func (h *apiHandler) addWishlist(c *gin.Context) {
	var body wishlistBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}
	bookID, err := uuid.Parse(body.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid book id"})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	entry, err := h.svc.Wishlist.Add(principal.ID, bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *apiHandler) listWishlist(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	entries, err := h.svc.Wishlist.List(principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *apiHandler) removeWishlist(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": "invalid book id"})
		return
	}
	principal := middleware.CurrentPrincipal(c)
	if err := h.svc.Wishlist.Remove(principal.ID, bookID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *apiHandler) listNotifications(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	notifications, err := h.svc.Notifications.List(principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *apiHandler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	principal := middleware.CurrentPrincipal(c)
	notification, err := h.svc.Notifications.MarkRead(id, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

type feedbackBody struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (h *apiHandler) leaveFeedback(c *gin.Context) {
	bookID, ok := pathID(c)
	if !ok {
		return
	}
	var body feedbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}

	principal := middleware.CurrentPrincipal(c)
	feedback, err := h.svc.Community.LeaveFeedback(principal.ID, bookID, body.Rating, body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

func (h *apiHandler) listFeedback(c *gin.Context) {
	bookID, ok := pathID(c)
	if !ok {
		return
	}
	feedback, err := h.svc.Community.ListFeedback(bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

type reportBody struct {
	ReportType string `json:"report_type" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

func (h *apiHandler) fileReport(c *gin.Context) {
	var body reportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}
	principal := middleware.CurrentPrincipal(c)
	report, err := h.svc.Community.FileReport(principal.ID, body.ReportType, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

type moderateBody struct {
	Status       string `json:"status" binding:"required"`
	AdminRemarks string `json:"admin_remarks"`
}

func (h *apiHandler) moderateReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body moderateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}
	principal := middleware.CurrentPrincipal(c)
	report, err := h.svc.Community.ModerateReport(id, principal, models.ReportStatus(body.Status), body.AdminRemarks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *apiHandler) listAnnouncements(c *gin.Context) {
	announcements, err := h.svc.Community.ListAnnouncements()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, announcements)
}

type announcementBody struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *apiHandler) publishAnnouncement(c *gin.Context) {
	var body announcementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(services.KindValidation), "message": err.Error()})
		return
	}
	principal := middleware.CurrentPrincipal(c)
	announcement, err := h.svc.Community.PublishAnnouncement(principal, body.Title, body.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, announcement)
}
