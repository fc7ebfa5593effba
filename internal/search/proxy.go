// Package search proxies the upstream attorney search and facet endpoints and
// serves the paginated explore envelope built on top of them.
package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/metrics"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/respond"
	"amlaw-directory/internal/upstream"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Fetcher performs upstream GETs. *upstream.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, endpoint, path string, query url.Values) (*upstream.Response, error)
	GetRaw(ctx context.Context, endpoint, path, rawQuery string) (*upstream.Response, error)
}

// Options locates the upstream endpoints and the public site.
type Options struct {
	SearchPath string
	FacetsPath string
	SiteURL    string // base for explore paging links
}

// Service provides the search, facets and explore routes.
type Service struct {
	client  Fetcher
	opts    Options
	metrics *metrics.Metrics
}

// NewService creates a search service.
func NewService(client Fetcher, opts Options, m *metrics.Metrics) *Service {
	return &Service{client: client, opts: opts, metrics: m}
}

// RegisterRoutes registers the search routes.
func (s *Service) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", s.Search).Methods(http.MethodGet)
	api.HandleFunc("/search/facets", s.Facets).Methods(http.MethodGet)
	api.HandleFunc("/explore", s.Explore).Methods(http.MethodGet)
}

// Search forwards the query string to the upstream search endpoint and relays
// its answer verbatim. When upstream is unreachable or answers with something
// other than JSON, an empty envelope is returned instead.
func (s *Service) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q, "limit", defaultLimit)
	offset := intParam(q, "offset", 0)

	resp, ok := s.forward(r, "search", s.opts.SearchPath)
	if !ok {
		s.metrics.ObserveDegraded("search")
		respond.JSON(w, http.StatusOK, model.EmptySearchResponse(limit, offset))
		return
	}
	relay(w, resp)
}

// Facets forwards to the upstream facets endpoint; failures degrade to {}.
func (s *Service) Facets(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.forward(r, "facets", s.opts.FacetsPath)
	if !ok {
		s.metrics.ObserveDegraded("facets")
		respond.JSON(w, http.StatusOK, model.Facets{})
		return
	}
	relay(w, resp)
}

func (s *Service) forward(r *http.Request, endpoint, path string) (*upstream.Response, bool) {
	log := logger.FromContext(r.Context())

	resp, err := s.client.GetRaw(r.Context(), endpoint, path, r.URL.RawQuery)
	if err != nil {
		log.Warn("upstream unavailable", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, false
	}
	if !resp.IsJSON() {
		log.Warn("upstream returned non-JSON content",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.Status),
			zap.String("content_type", resp.ContentType),
		)
		return nil, false
	}
	return resp, true
}

func relay(w http.ResponseWriter, resp *upstream.Response) {
	w.Header().Set("Content-Type", resp.ContentTypeOrDefault())
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// intParam parses a non-negative integer parameter, falling back to def.
func intParam(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
