package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"amlaw-directory/internal/authgate"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/respond"
)

// RouteRegistrar is implemented by every service that owns routes.
type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

// HealthChecker checks that a dependency answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context, path string) error
}

// Options assembles the HTTP surface.
type Options struct {
	Logger   *zap.Logger
	Gate     *authgate.Gate
	Services []RouteRegistrar

	Upstream           HealthChecker // checked by /health/upstream when set
	UpstreamHealthPath string

	MetricsPath    string
	MetricsHandler http.Handler // nil disables the metrics route

	RateLimiter *RateLimiter // nil disables rate limiting
}

// NewHandler builds the router and wraps it in the middleware chain. The gate
// runs in front of the router so unknown paths are protected too.
func NewHandler(opts Options) http.Handler {
	r := mux.NewRouter()
	RegisterRoutes(r, opts)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mws := []Middleware{RequestLogger(log), Recovery}
	if opts.RateLimiter != nil {
		mws = append(mws, opts.RateLimiter.Middleware)
	}
	if opts.Gate != nil {
		mws = append(mws, opts.Gate.Middleware)
	}
	return Chain(r, mws...)
}

// RegisterRoutes wires health, metrics and every service's routes.
// gorilla/mux: Router provides method-based routing and URL pattern matching.
func RegisterRoutes(r *mux.Router, opts Options) {
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	if opts.Upstream != nil {
		r.HandleFunc("/health/upstream", upstreamHealthHandler(opts.Upstream, opts.UpstreamHealthPath)).Methods(http.MethodGet)
	}
	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, opts.MetricsHandler).Methods(http.MethodGet)
	}
	for _, s := range opts.Services {
		s.RegisterRoutes(r)
	}
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
}

// HealthResponse is the body of the health routes.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func upstreamHealthHandler(hc HealthChecker, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := hc.HealthCheck(ctx, path); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Message: err.Error()})
			return
		}
		respond.JSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: "upstream is available"})
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, http.StatusNotFound, model.ErrCodeRouteNotFound, "")
}
