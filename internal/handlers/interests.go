package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citypulse/internal/middleware"
	"citypulse/internal/models"
)

// ListInterests - GET /api/interests
// Интересы, доступные в текущем городе
func (h *Handlers) ListInterests(c *gin.Context) {
	interests, err := h.services.Interests.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.handleServiceError(c, err, "Failed to list interests")
		return
	}

	c.JSON(http.StatusOK, models.Results[models.Interest]{Results: interests})
}

// CreateInterest - POST /api/interests
func (h *Handlers) CreateInterest(c *gin.Context) {
	var req models.CreateInterestRequest
	if !h.bind(c, &req) {
		return
	}

	interest, err := h.services.Interests.Create(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create interest")
		return
	}

	c.JSON(http.StatusCreated, interest)
}

// GetSubscription - GET /api/me/interests
func (h *Handlers) GetSubscription(c *gin.Context) {
	sub, err := h.services.Subscriptions.Get(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get subscription")
		return
	}

	c.JSON(http.StatusOK, sub)
}

// SetSubscription - PUT /api/me/interests
// {"all": true} или {"interests": [...]}
func (h *Handlers) SetSubscription(c *gin.Context) {
	var req models.SubscriptionRequest
	if !h.bind(c, &req) {
		return
	}

	sub, err := h.services.Subscriptions.Set(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update subscription")
		return
	}

	c.JSON(http.StatusOK, sub)
}

// SetCity - PUT /api/me/city
func (h *Handlers) SetCity(c *gin.Context) {
	var req models.SetCityRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.services.Subscriptions.SetCity(c.Request.Context(), middleware.CurrentUser(c), &req); err != nil {
		h.handleServiceError(c, err, "Failed to set city")
		return
	}

	c.Status(http.StatusOK)
}
