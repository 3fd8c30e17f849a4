package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestAPIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAPIKeyAuth("X-API-Key", []string{"", string(hash)})
	require.True(t, auth.Enabled())
	h := auth.Middleware(okHandler)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header", "X-API-Key", "secret-key", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer secret-key", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutHashes(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", nil)
	assert.False(t, auth.Enabled())

	rec := httptest.NewRecorder()
	auth.Middleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHashAPIKey(t *testing.T) {
	hash, err := HashAPIKey("k")
	require.NoError(t, err)
	assert.True(t, NewAPIKeyAuth("X-API-Key", []string{hash}).IsValid("k"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	h := rl.Middleware(func(*http.Request) string { return "a" })(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")
	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 0, rl.Cleanup())
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	h := RequestSizeLimitMiddleware(4)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"), SecurityHeadersMiddleware)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, StatusOK, status.Status)

	c.AddCheck("database", func(context.Context) error { return nil })
	c.AddOptionalCheck("redis", func(context.Context) error { return errors.New("down") })
	status = c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "Running without: redis", status.Message)
	assert.False(t, status.Checks["redis"].Critical)

	c.AddCheck("search", func(context.Context) error { return errors.New("timeout") })
	c.AddCheck("database", func(context.Context) error { return errors.New("refused") })
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, StatusDown, status.Status)
	assert.Equal(t, "Some checks failed: database, search", status.Message)
	assert.Equal(t, "refused", status.Checks["database"].Message)
	assert.Len(t, status.Checks, 3)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}
