package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citypulse/internal/middleware"
	"citypulse/internal/models"
)

// view - GET /api/feed/...
// Paginated views render {count, page, pageSize, results}, the rest {results}.
func (h *Handlers) view(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.services.Feed.Run(c.Request.Context(), name, middleware.CurrentUser(c), c.Request.URL.Query())
		if err != nil {
			h.handleServiceError(c, err, "Failed to load "+name+" view")
			return
		}

		events := nonNil(result.Events)
		if !result.Plan.Paginated {
			c.JSON(http.StatusOK, models.Results[*models.Event]{Results: events})
			return
		}
		c.JSON(http.StatusOK, models.Page[*models.Event]{
			Count:    result.Count,
			Page:     result.Plan.Page.Page,
			PageSize: result.Plan.Page.PageSize,
			Results:  events,
		})
	}
}
