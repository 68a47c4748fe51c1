package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

func TestCorrelationIDMiddleware_Generated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	var seen string
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		observability.LoggerFromContext(r.Context()).Info("inside")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(CorrelationHeader))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, seen, logs.All()[0].ContextMap()["correlation_id"])
}

func TestCorrelationIDMiddleware_Propagated(t *testing.T) {
	router := newTestRouter(t, seededStore(t), RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "client-provided-id", w.Header().Get(CorrelationHeader))
}

// TestMetricsMiddleware_RouteTemplate verifies requests are labelled by mux template.
func TestMetricsMiddleware_RouteTemplate(t *testing.T) {
	router := newTestRouter(t, seededStore(t), RouterOptions{})
	counter := observability.HTTPRequestsTotal.WithLabelValues("GET", "/api/get-platforms", "2xx")
	before := testutil.ToFloat64(counter)

	w, _ := do(t, router, http.MethodGet, "/api/get-platforms?name=dream", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, int64(0), InFlightCount())
}

func TestMetricsMiddleware_RecordsNonOK(t *testing.T) {
	router := newTestRouter(t, seededStore(t), RouterOptions{})
	counter := observability.HTTPRequestsTotal.WithLabelValues("POST", "/api/get-platform-by-name", "4xx")
	before := testutil.ToFloat64(counter)

	w, _ := do(t, router, http.MethodPost, "/api/get-platform-by-name", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAPIKeyMiddleware(t *testing.T) {
	router := newTestRouter(t, seededStore(t), RouterOptions{APIKey: "s3cret"})

	tests := []struct {
		name       string
		key        string
		path       string
		wantStatus int
	}{
		{"missing", "", "/api/get-platforms", http.StatusUnauthorized},
		{"wrong", "nope", "/api/get-platforms", http.StatusUnauthorized},
		{"valid", "s3cret", "/api/get-platforms", http.StatusOK},
		{"probe needs no key", "", "/livez", http.StatusOK},
		{"root needs no key", "", "/", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Invalid or missing API key"}`, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 2)
	router := newTestRouter(t, seededStore(t), RouterOptions{Limiter: limiter})
	before := testutil.ToFloat64(observability.RateLimitDeniedTotal)

	for i := 0; i < 2; i++ {
		w, _ := do(t, router, http.MethodGet, "/api/get-platforms", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
	w, body := do(t, router, http.MethodGet, "/api/get-platforms", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests, please try again later", body["error"])
	assert.Equal(t, before+1, testutil.ToFloat64(observability.RateLimitDeniedTotal))

	w, _ = do(t, router, http.MethodGet, "/livez", "")
	assert.Equal(t, http.StatusOK, w.Code, "probes are not rate limited")
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok, "deadline not set")
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestTimeoutMiddleware_Disabled(t *testing.T) {
	var ok bool
	h := TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestHandler_CanceledContextFailsLookup(t *testing.T) {
	router := newTestRouter(t, seededStore(t), RouterOptions{RequestTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/get-platform-by-name", strings.NewReader(`{"name":"Dreamcast"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Failed to retrieve platform"}`, w.Body.String())
}
