package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

// DefaultPrefix is where the platform endpoints are mounted unless configured otherwise.
const DefaultPrefix = "/api"

// RouterOptions configures NewRouter. Zero values disable the corresponding middleware.
type RouterOptions struct {
	Prefix         string
	APIKey         string
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter mounts the platform endpoints under opts.Prefix and the probes and metrics
// at the root. Auth, rate limiting and the request deadline apply to platform endpoints only.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.Root).Methods(http.MethodGet)
	router.HandleFunc("/livez", h.Livez).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	prefix := NormalizePrefix(opts.Prefix)
	platform := chain(
		APIKeyMiddleware(opts.APIKey),
		RateLimitMiddleware(opts.Limiter),
		TimeoutMiddleware(opts.RequestTimeout),
	)
	// Registered flat on the root router: a PathPrefix subrouter answers 404 instead of 405
	// for a method mismatch once a later route fails to match.
	for _, r := range []struct {
		path    string
		method  string
		handler http.HandlerFunc
	}{
		{"/get-platforms", http.MethodGet, h.GetPlatforms},
		{"/get-platform-by-name", http.MethodPost, h.GetPlatformByName},
		{"/get-platform-by-id", http.MethodPost, h.GetPlatformByID},
		{"/add-platform", http.MethodPost, h.AddPlatform},
		{"/update-platform", http.MethodPost, h.UpdatePlatform},
		{"/delete-platform", http.MethodPost, h.DeletePlatform},
	} {
		router.Handle(prefix+r.path, platform(r.handler)).Methods(r.method)
	}

	return router
}

// chain applies mws so that the first one sees the request first.
func chain(mws ...mux.MiddlewareFunc) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// NormalizePrefix returns "/segment" form, "" for the root, and DefaultPrefix when unset.
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultPrefix
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
