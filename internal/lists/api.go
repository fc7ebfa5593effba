package lists

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"amlaw-directory/internal/authgate"
	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/respond"
)

const maxBodyBytes = 1 << 20

// go-playground/validator/v10: validates list request bodies against struct tags.
var validate = validator.New()

// Service serves the list routes for the session user.
type Service struct {
	store *Store
}

// NewService creates a list service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// RegisterRoutes registers the /api/lists routes.
func (s *Service) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/lists").Subrouter()
	api.HandleFunc("", s.listLists).Methods(http.MethodGet)
	api.HandleFunc("", s.createList).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.getList).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.renameList).Methods(http.MethodPatch)
	api.HandleFunc("/{id}", s.deleteList).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/items", s.addItem).Methods(http.MethodPut)
	api.HandleFunc("/{id}/items/{attorney_id}", s.removeItem).Methods(http.MethodDelete)
}

func (s *Service) listLists(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.Lists(r.Context(), authgate.UserIDFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, all)
}

func (s *Service) createList(w http.ResponseWriter, r *http.Request) {
	var req model.ListNameRequest
	if !decode(w, r, &req) {
		return
	}
	list, err := s.store.Create(r.Context(), authgate.UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, list)
}

func (s *Service) getList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Get(r.Context(), authgate.UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (s *Service) renameList(w http.ResponseWriter, r *http.Request) {
	var req model.ListNameRequest
	if !decode(w, r, &req) {
		return
	}
	list, err := s.store.Rename(r.Context(), authgate.UserIDFromContext(r.Context()), mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (s *Service) deleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), authgate.UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) addItem(w http.ResponseWriter, r *http.Request) {
	var item model.ListItem
	if !decode(w, r, &item) {
		return
	}
	list, err := s.store.AddItem(r.Context(), authgate.UserIDFromContext(r.Context()), mux.Vars(r)["id"], item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (s *Service) removeItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	list, err := s.store.RemoveItem(r.Context(), authgate.UserIDFromContext(r.Context()), vars["id"], vars["attorney_id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrListNotFound) {
		respond.Error(w, http.StatusNotFound, model.ErrCodeListNotFound, "")
		return
	}
	logger.FromContext(r.Context()).Error("list operation failed", zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, model.ErrCodeInternal, "")
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid JSON body")
		return false
	}
	trimFields(v)
	if err := validate.Struct(v); err != nil {
		respond.Error(w, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
		return false
	}
	return true
}

func trimFields(v any) {
	switch req := v.(type) {
	case *model.ListNameRequest:
		req.Name = strings.TrimSpace(req.Name)
	case *model.ListItem:
		req.AttorneyID = strings.TrimSpace(req.AttorneyID)
		req.FullName = strings.TrimSpace(req.FullName)
	}
}
