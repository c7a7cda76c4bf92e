package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citypulse/internal/middleware"
	"citypulse/internal/models"
)

// Events handlers

// CreateEvent - POST /api/events
// Создать событие, оно уходит на модерацию
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if !h.bind(c, &req) {
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID.Hex()})
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateEvent - PATCH /api/events/:id
// Изменить событие, статус снова MODERATION
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req models.UpdateEventRequest
	if !h.bind(c, &req) {
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// ApproveEvent - POST /api/events/:id/approve
func (h *Handlers) ApproveEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	if err := h.services.Events.Approve(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		h.handleServiceError(c, err, "Failed to approve event")
		return
	}

	c.Status(http.StatusOK)
}

// RejectEvent - POST /api/events/:id/reject
// Отклонить событие с причиной
func (h *Handlers) RejectEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req models.RejectRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.services.Events.Reject(c.Request.Context(), middleware.CurrentUser(c), id, req.Text); err != nil {
		h.handleServiceError(c, err, "Failed to reject event")
		return
	}

	c.Status(http.StatusOK)
}

// Complain - POST /api/events/:id/complain
// Пожаловаться на событие
func (h *Handlers) Complain(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req models.ComplaintRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.services.Events.Complain(c.Request.Context(), middleware.CurrentUser(c), id, req.Text); err != nil {
		h.handleServiceError(c, err, "Failed to file complaint")
		return
	}

	c.Status(http.StatusOK)
}
