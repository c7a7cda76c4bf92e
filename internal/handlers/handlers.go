package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/feed"
	"citypulse/internal/logger"
	"citypulse/internal/middleware"
	"citypulse/internal/models"
	"citypulse/internal/service"
	"citypulse/internal/validation"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	validation.Register()
	return &Handlers{services: services}
}

// Register подключает все маршруты API к группе, защищенной Auth
func (h *Handlers) Register(api *gin.RouterGroup) {
	views := api.Group("/feed")
	{
		views.GET("", h.view(feed.ViewFeed))
		views.GET("/featured", h.view(feed.ViewFeatured))
		views.GET("/organizer", h.view(feed.ViewOrganizer))
		views.GET("/explore", h.view(feed.ViewExplore))
		views.GET("/map", h.view(feed.ViewMap))
		views.GET("/favourites", h.view(feed.ViewFavourites))
	}

	events := api.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("/:id", h.GetEvent)
		events.PATCH("/:id", h.UpdateEvent)
		events.POST("/:id/approve", h.ApproveEvent)
		events.POST("/:id/reject", h.RejectEvent)
		events.POST("/:id/activate", h.command(h.services.Events.Activate))
		events.POST("/:id/deactivate", h.command(h.services.Events.Deactivate))
		events.POST("/:id/upvote", h.command(h.services.Events.Upvote))
		events.POST("/:id/downvote", h.command(h.services.Events.Downvote))
		events.DELETE("/:id/upvote", h.command(h.services.Events.Downvote))
		events.POST("/:id/favourite", h.command(h.services.Events.AddFavourite))
		events.POST("/:id/unfavourite", h.command(h.services.Events.RemoveFavourite))
		events.DELETE("/:id/favourite", h.command(h.services.Events.RemoveFavourite))
		events.POST("/:id/complain", h.Complain)
		events.GET("/:id/complaints", h.EventComplaints)
	}

	api.GET("/moderation/events", h.view(feed.ViewModeration))

	complaints := api.Group("/complaints")
	{
		complaints.GET("", h.ListComplaints)
		complaints.POST("/:id/reply", h.ReplyComplaint)
	}

	interests := api.Group("/interests")
	{
		interests.GET("", h.ListInterests)
		interests.POST("", h.CreateInterest)
	}

	me := api.Group("/me")
	{
		me.GET("/interests", h.GetSubscription)
		me.PUT("/interests", h.SetSubscription)
		me.PUT("/city", h.SetCity)
	}
}

// handleServiceError переводит ошибки сервисов в HTTP-статусы
func (h *Handlers) handleServiceError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": apperr.Field(err)})
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithContext(c.Request.Context()).Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// bind декодирует JSON-тело, ошибки привязки отдаются как 400 с полем
func (h *Handlers) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.handleServiceError(c, validation.Translate(err), "Invalid request")
		return false
	}
	return true
}

func (h *Handlers) eventID(c *gin.Context) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.handleServiceError(c, apperr.NotFound("event"), "Invalid event id")
		return bson.ObjectID{}, false
	}
	return id, true
}

func (h *Handlers) complaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		h.handleServiceError(c, apperr.NotFound("complaint"), "Invalid complaint id")
		return 0, false
	}
	return id, true
}

// command - обработчик команды без тела: 200 при успехе
func (h *Handlers) command(run func(ctx context.Context, user *models.User, id bson.ObjectID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.eventID(c)
		if !ok {
			return
		}
		if err := run(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			h.handleServiceError(c, err, "Failed to update event")
			return
		}
		c.Status(http.StatusOK)
	}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
