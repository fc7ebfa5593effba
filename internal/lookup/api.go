package lookup

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/respond"
)

// Service serves attorney profile lookups.
type Service struct {
	resolver *Resolver
}

// NewService creates a lookup service around resolver.
func NewService(resolver *Resolver) *Service {
	return &Service{resolver: resolver}
}

// RegisterRoutes registers the attorney lookup route.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/attorney/{id}", s.GetAttorney).Methods(http.MethodGet)
}

// GetAttorney resolves {id}, using the optional ?name= hint.
func (s *Service) GetAttorney(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	name := r.URL.Query().Get("name")

	a, strategy, err := s.resolver.Resolve(r.Context(), id, name)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, a)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, model.ErrCodeNotFound, "")
	default:
		logger.FromContext(r.Context()).Error("attorney lookup failed",
			zap.String("attorney_id", id),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		respond.Error(w, http.StatusInternalServerError, model.ErrCodeLookupFailed, err.Error())
	}
}
