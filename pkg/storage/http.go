package storage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
)

// Handler exposes the object store to upload clients: a presigned read URL
// and the object metadata. Writes go straight to the store, never through
// this service.
type Handler struct {
	store ObjectStore
}

func NewHandler(store ObjectStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/file/s3/url", h.handlePresignedURL).Methods(http.MethodGet)
	r.HandleFunc("/file/s3/metadata", h.handleMetadata).Methods(http.MethodGet)
}

func (h *Handler) handlePresignedURL(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	url, err := h.store.PresignedURL(r.Context(), path)
	if err != nil {
		logger.Log.WithError(err).WithField("path", path).Error("failed to presign object")
		http.Error(w, "failed to presign object", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": url})
}

func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	metadata, err := h.store.Head(r.Context(), path)
	if errors.Is(err, ErrObjectNotFound) {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).WithField("path", path).Error("failed to describe object")
		http.Error(w, "failed to describe object", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"metadata": metadata})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
