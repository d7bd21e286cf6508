package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver map[string]*auth.User

func (s stubResolver) Resolve(_ context.Context, token string) (*auth.User, error) {
	if token == "boom" {
		return nil, errors.New("supabase unreachable")
	}
	if token == "unconfigured" {
		return nil, auth.ErrNotConfigured
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

var users = stubResolver{
	"admin-token": {ID: "u-admin", AppMetadata: map[string]any{"roles": []any{"Admin"}}},
	"user-token":  {ID: "u-plain"},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func adminRouter(ready bool) *gin.Engine {
	r := gin.New()
	r.GET("/admin", Authenticate(users, ready, zap.NewNop()), Authorize("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		ready  bool
		header string
		status int
		code   string
	}{
		{"not configured", false, "Bearer admin-token", http.StatusInternalServerError, "config_error"},
		{"no header", true, "", http.StatusUnauthorized, "missing_token"},
		{"wrong scheme", true, "Basic abc", http.StatusUnauthorized, "missing_token"},
		{"empty token", true, "Bearer ", http.StatusUnauthorized, "invalid_token"},
		{"unknown token", true, "Bearer nope", http.StatusUnauthorized, "invalid_token"},
		{"resolver failure", true, "Bearer boom", http.StatusUnauthorized, "invalid_token"},
		{"resolver not configured", true, "Bearer unconfigured", http.StatusInternalServerError, "config_error"},
		{"missing role", true, "Bearer user-token", http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			adminRouter(tt.ready).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	adminRouter(true).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-admin"}`, w.Body.String())
}

func TestRequireAPIKey(t *testing.T) {
	r := gin.New()
	r.POST("/reply", RequireAPIKey(auth.NewAPIKey("s3cret")), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for key, status := range map[string]int{"": 401, "wrong": 401, "s3cret": 204} {
		req := httptest.NewRequest(http.MethodPost, "/reply", nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, "key %q", key)
	}
}

func TestRateLimit(t *testing.T) {
	m := metrics.New()
	limiter := ratelimit.New(ratelimit.NewMemoryCounter(), 2, time.Minute)
	r := gin.New()
	r.POST("/send", RateLimit(limiter, "send-request", m, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/send", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/echo", BodyLimit(8), func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"far too long"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestLogger_RecordsRoute(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop(), m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `route="/items/:id"`)
}
