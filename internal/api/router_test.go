package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comilla/site-backend/internal/api/middleware"
	"github.com/comilla/site-backend/internal/auth"
	"github.com/comilla/site-backend/internal/config"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/domain/users"
)

// noUsers is a credential store with nobody in it.
type noUsers struct{}

func (noUsers) GetByID(context.Context, string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (noUsers) GetByEmail(context.Context, string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (noUsers) Create(_ context.Context, p users.CreateParams) (*users.User, error) {
	return &users.User{ID: p.ID, Email: p.Email, PasswordHash: p.PasswordHash}, nil
}

func (noUsers) UpdateEmail(context.Context, string, string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (noUsers) UpdatePassword(context.Context, string, string) error {
	return users.ErrUserNotFound
}

func testRouter(t *testing.T, mutate func(*config.Config)) (http.Handler, *auth.JWTManager) {
	t.Helper()
	tokens, err := auth.NewJWTManager(strings.Repeat("k", 40), 10*time.Minute, "comilla-test")
	require.NoError(t, err)

	cfg := config.Config{
		Environment: "test",
		Server:      config.ServerConfig{MaxUploadSize: 1 << 20},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://comilla.example"}},
		RateLimit:   config.RateLimitConfig{LoginPerMinute: 2},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	router := NewRouter(t.Context(), Dependencies{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Tokens:    tokens,
		Users:     users.NewService(noUsers{}, auth.NewPasswordHasher(4), tokens, zerolog.Nop()),
		Projects:  projects.NewService(nil, nil),
		Version:   "1.0.0",
		GitCommit: "abc",
	})
	return router, tokens
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterAmbientHeaders(t *testing.T) {
	router, _ := testRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterPublicEndpoints(t *testing.T) {
	router, _ := testRouter(t, nil)

	for _, path := range []string{"/healthz", "/version", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRouterRequiresSession(t *testing.T) {
	router, _ := testRouter(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/project"},
		{http.MethodPatch, "/project"},
		{http.MethodDelete, "/project/01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{http.MethodPost, "/events"},
		{http.MethodDelete, "/events/01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{http.MethodPost, "/edit-email"},
		{http.MethodPost, "/change-password"},
		{http.MethodPost, "/register"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouterOpenRegistration(t *testing.T) {
	router, _ := testRouter(t, func(cfg *config.Config) { cfg.Auth.OpenRegistration = true })

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterSessionReachesHandler(t *testing.T) {
	router, tokens := testRouter(t, nil)
	token, _, err := tokens.Generate("01ARZ3NDEKTSV4RRFFQ69G5FAV", "admin@example.com")
	require.NoError(t, err)

	// An id that is not a ULID never reaches the store.
	req := httptest.NewRequest(http.MethodDelete, "/project/not-a-ulid", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	rec := serve(router, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterLoginRateLimit(t *testing.T) {
	router, _ := testRouter(t, nil)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"x@y.z","password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:4000"
		return serve(router, req).Code
	}

	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router, _ := testRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestRouterCORSPreflight(t *testing.T) {
	router, _ := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/project", nil)
	req.Header.Set("Origin", "https://comilla.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := serve(router, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://comilla.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodMux(t *testing.T) {
	ok := func(status int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) })
	}
	mux := methodMux(map[string]http.Handler{
		http.MethodGet:    ok(http.StatusOK),
		http.MethodDelete: ok(http.StatusAccepted),
	})

	tests := []struct {
		method string
		status int
		allow  string
	}{
		{http.MethodGet, http.StatusOK, ""},
		{http.MethodDelete, http.StatusAccepted, ""},
		{http.MethodPatch, http.StatusMethodNotAllowed, "DELETE, GET"},
		{http.MethodOptions, http.StatusMethodNotAllowed, "DELETE, GET"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := serve(mux, httptest.NewRequest(tt.method, "/project", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Allow"))
		})
	}
}

func TestMethodMuxEmpty(t *testing.T) {
	rec := serve(methodMux(map[string]http.Handler{}), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Header().Get("Allow"))
}
