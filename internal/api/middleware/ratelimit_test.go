package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/comilla/site-backend/internal/config"
)

func limitedHandler(t *testing.T, cfg config.RateLimitConfig, tier RateLimitTier) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return WithRateLimitTierHandler(tier)(RateLimit(ctx, cfg, "test")(ok))
}

func doFrom(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remote
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestRateLimit_LoginBurstThenBlock(t *testing.T) {
	h := limitedHandler(t, config.RateLimitConfig{LoginPerMinute: 5}, TierLogin)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doFrom(h, "192.168.1.100:1234").Code, "request %d", i+1)
	}

	res := doFrom(h, "192.168.1.100:1234")
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "12", res.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, doFrom(h, "192.168.1.101:1234").Code, "other clients are isolated")
}

func TestRateLimit_ZeroDisablesTier(t *testing.T) {
	h := limitedHandler(t, config.RateLimitConfig{PublicPerMinute: 1}, TierAdmin)

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1").Code)
	}
}

func TestRateLimit_DefaultsToPublicTier(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, config.RateLimitConfig{PublicPerMinute: 1}, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, "10.0.0.2:1").Code)
}

func TestClientKey_TrustedProxy(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	assert.Equal(t, "203.0.113.9", clientKey(req, trusted))

	req.RemoteAddr = "198.51.100.7:443"
	assert.Equal(t, "198.51.100.7", clientKey(req, trusted), "spoofed header from untrusted peer")

	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "203.0.113.10", clientKey(req, trusted))
}

func TestLimiterStore_Cleanup(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 10})
	store.limiter(TierPublic, "a")
	assert.Len(t, store.limiters, 1)

	store.cleanup(time.Now().Add(limiterTTL + time.Minute))
	assert.Empty(t, store.limiters)
}
