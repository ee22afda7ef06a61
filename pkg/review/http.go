package review

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
)

type Handler struct {
	cache *Cache
}

func NewHandler(cache *Cache) *Handler {
	return &Handler{cache: cache}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/review-requests", h.handleOpen).Methods(http.MethodPost)
	r.HandleFunc("/review-requests/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/review-requests/{id}", h.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/review-requests/{id}", h.handleClose).Methods(http.MethodDelete)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.cache.Open(r.Context(), data)
	if err != nil {
		logger.Log.WithError(err).Error("failed to open review request")
		http.Error(w, "failed to open review request", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	request, err := h.cache.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrRequestNotFound) {
		http.Error(w, "review request not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get review request")
		http.Error(w, "failed to get review request", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"request": request})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	// Update only refreshes a live request; an expired one is gone.
	if _, err := h.cache.Get(r.Context(), id); errors.Is(err, ErrRequestNotFound) {
		http.Error(w, "review request not found", http.StatusNotFound)
		return
	} else if err != nil {
		logger.Log.WithError(err).Error("failed to get review request")
		http.Error(w, "failed to update review request", http.StatusInternalServerError)
		return
	}

	if err := h.cache.Update(r.Context(), Request{ID: id, Data: data}); err != nil {
		logger.Log.WithError(err).Error("failed to update review request")
		http.Error(w, "failed to update review request", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		logger.Log.WithError(err).Error("failed to close review request")
		http.Error(w, "failed to close review request", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
