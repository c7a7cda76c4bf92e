package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citypulse/internal/middleware"
	"citypulse/internal/models"
	"citypulse/internal/service"
)

func complaintPage(p *service.ComplaintPage) models.Page[*models.Complaint] {
	return models.Page[*models.Complaint]{
		Count:    p.Count,
		Page:     p.Page.Page,
		PageSize: p.Page.PageSize,
		Results:  nonNil(p.Complaints),
	}
}

// ListComplaints - GET /api/complaints
// Жалобы для персонала, фильтры status, event, author
func (h *Handlers) ListComplaints(c *gin.Context) {
	page, err := h.services.Complaints.List(c.Request.Context(), middleware.CurrentUser(c), c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Failed to list complaints")
		return
	}

	c.JSON(http.StatusOK, complaintPage(page))
}

// EventComplaints - GET /api/events/:id/complaints
func (h *Handlers) EventComplaints(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	page, err := h.services.Complaints.ForEvent(c.Request.Context(), middleware.CurrentUser(c), id, c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Failed to list complaints")
		return
	}

	c.JSON(http.StatusOK, complaintPage(page))
}

// ReplyComplaint - POST /api/complaints/:id/reply
// Ответить на жалобу и закрыть ее
func (h *Handlers) ReplyComplaint(c *gin.Context) {
	id, ok := h.complaintID(c)
	if !ok {
		return
	}
	var req models.ReplyComplaintRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.services.Complaints.Reply(c.Request.Context(), middleware.CurrentUser(c), id, req.Answer); err != nil {
		h.handleServiceError(c, err, "Failed to reply to complaint")
		return
	}

	c.Status(http.StatusOK)
}
