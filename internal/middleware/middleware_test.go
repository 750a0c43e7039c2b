package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	logger_i.InitWithWriter(io.Discard, false)
	os.Exit(m.Run())
}

func TestIsValidBearerToken(t *testing.T) {
	log := logger_i.NewLogger("test")

	tests := []struct {
		name   string
		opts   Options
		header string
		want   bool
	}{
		{name: "matching token", opts: Options{AuthToken: "abc"}, header: "Bearer abc", want: true},
		{name: "wrong token", opts: Options{AuthToken: "abc"}, header: "Bearer abd", want: false},
		{name: "missing scheme", opts: Options{AuthToken: "abc"}, header: "abc", want: false},
		{name: "empty header", opts: Options{AuthToken: "abc"}, header: "", want: false},
		{name: "no token configured", opts: Options{}, header: "Bearer ", want: false},
		{name: "bypass", opts: Options{NoAuthBypass: true}, header: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(tt.opts)
			assert.Equal(t, tt.want, IsValidBearerToken(tt.header, log))
		})
	}
}

func TestInitFallsBackToDefaultLimits(t *testing.T) {
	Init(Options{AuthToken: "abc"})
	assert.Equal(t, float64(config.RATE_LIMIT_PER_SECOND), settings.RatePerSecond)
	assert.Equal(t, config.BURST_RATE_LIMIT_PER_SECOND, settings.Burst)
	assert.Equal(t, config.RateLimiterIdleTTL, settings.LimiterIdle)
}

func TestRateLimiterIsPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2, time.Minute)

	a := limiter.GetLimiter("10.0.0.1")
	assert.Same(t, a, limiter.GetLimiter("10.0.0.1"))
	assert.True(t, a.Allow())
	assert.True(t, a.Allow())
	assert.False(t, a.Allow())

	assert.True(t, limiter.GetLimiter("10.0.0.2").Allow())
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, time.Minute)
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.Tracked())

	clock = clock.Add(30 * time.Second)
	assert.False(t, limiter.Allow("10.0.0.2"))

	// 10.0.0.1 has been idle for a full ttl, 10.0.0.2 was seen 30s ago
	clock = clock.Add(45 * time.Second)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 2, limiter.Tracked())

	// a dropped client comes back with a full bucket
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiterWithoutIdleTTLKeepsClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, 0)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("10.0.0.1")
	clock = clock.Add(24 * time.Hour)
	limiter.Allow("10.0.0.2")
	assert.Equal(t, 2, limiter.Tracked())
}

func TestWrapRejectsOverLimit(t *testing.T) {
	Init(Options{AuthToken: "abc", RatePerSecond: 0.001, Burst: 1})
	calls := 0
	h := Wrap(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.Equal(t, 1, calls)
}

func TestWrapStopsBeforeHandlerOnBadToken(t *testing.T) {
	Init(Options{AuthToken: "abc", RatePerSecond: 1000, Burst: 1000})
	called := false
	h := Wrap(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestTraceIdReachesHandler(t *testing.T) {
	Init(Options{NoAuthBypass: true, RatePerSecond: 1000, Burst: 1000})
	var seen string
	h := Wrap(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(config.TRACE_ID_KEY).(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "t-1")
	h(httptest.NewRecorder(), req)

	assert.Equal(t, "t-1", seen)
}
