package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/logger"
	"citypulse/internal/models"
	"citypulse/internal/repository/memory"
)

const secret = "test-secret"

func setupRouter(t *testing.T) (*gin.Engine, *models.User) {
	gin.SetMode(gin.TestMode)
	repos := memory.New().Repositories()

	user := &models.User{Email: "org@example.com", Role: models.RoleOrganizer, IsActive: true}
	require.NoError(t, repos.Users.Create(context.Background(), user))

	router := gin.New()
	router.Use(RequestID())
	api := router.Group("/api", Auth(secret, repos.Users))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":         CurrentUser(c).ID.Hex(),
			"request_id": logger.RequestID(c.Request.Context()),
		})
	})
	api.GET("/staff", RequireRole(models.RoleModerator), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, user
}

func do(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	router, user := setupRouter(t)
	now := time.Now()

	valid, err := IssueToken(secret, user.ID, time.Hour, now)
	require.NoError(t, err)
	expired, err := IssueToken(secret, user.ID, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	forged, err := IssueToken("other-secret", user.ID, time.Hour, now)
	require.NoError(t, err)
	unknown, err := IssueToken(secret, bson.NewObjectID(), time.Hour, now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"wrong secret", forged, http.StatusUnauthorized},
		{"unknown user", unknown, http.StatusUnauthorized},
		{"garbage", "not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, "/api/me", tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	router, user := setupRouter(t)
	token, err := IssueToken(secret, user.ID, time.Hour, time.Now())
	require.NoError(t, err)

	w := do(router, "/api/me", token)
	require.Equal(t, http.StatusOK, w.Code)

	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.Contains(t, w.Body.String(), id)
	assert.Contains(t, w.Body.String(), user.ID.Hex())
}

func TestRequireRole(t *testing.T) {
	router, user := setupRouter(t)
	token, err := IssueToken(secret, user.ID, time.Hour, time.Now())
	require.NoError(t, err)

	w := do(router, "/api/staff", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
