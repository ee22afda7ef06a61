package preload

import (
	"encoding/json"
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
	r.HandleFunc("/admin/cache-update", h.handleReload).Methods(http.MethodPost)
	r.HandleFunc("/validation-rules/{examinationId}", h.handleRules).Methods(http.MethodGet)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Reload(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to reload preload cache")
		http.Error(w, "failed to reload cache", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (h *Handler) handleRules(w http.ResponseWriter, r *http.Request) {
	examinationID := mux.Vars(r)["examinationId"]
	rule, err := h.cache.RulesFor(r.Context(), examinationID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to resolve validation rules")
		http.Error(w, "failed to resolve validation rules", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rule": rule})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
