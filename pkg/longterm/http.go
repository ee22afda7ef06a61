package longterm

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
)

// reviewerHeader carries the acting reviewer's email, set by the gateway.
const reviewerHeader = "X-User-Email"

// Handler is the management surface over migrated examinations: the review
// state chart plus manual acceptance and rejection of selections that the
// automatic path left in review.
type Handler struct {
	repo          *Repository
	defaultSchema string
}

func NewHandler(repo *Repository, defaultSchema string) *Handler {
	return &Handler{repo: repo, defaultSchema: defaultSchema}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/management/state-chart", h.handleStateChart).Methods(http.MethodGet)
	r.HandleFunc("/management/examinations", h.handleListExaminations).Methods(http.MethodGet)
	r.HandleFunc("/management/accept", h.handleAccept).Methods(http.MethodPost)
	r.HandleFunc("/management/reject", h.handleReject).Methods(http.MethodPost)
}

func (h *Handler) handleStateChart(w http.ResponseWriter, r *http.Request) {
	schema := h.schema(r)
	counts, err := h.repo.StateChart(r.Context(), schema)
	if err != nil {
		logger.Log.WithError(err).Error("failed to build state chart")
		http.Error(w, "failed to build state chart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"schema": schema,
		"values": counts,
	})
}

func (h *Handler) handleListExaminations(w http.ResponseWriter, r *http.Request) {
	schema := h.schema(r)
	state := r.URL.Query().Get("state")
	limit := parseLimit(r, 100)

	exams, err := h.repo.ListExaminations(r.Context(), schema, state, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list examinations")
		http.Error(w, "failed to list examinations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": exams})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.handleStateUpdate(w, r, StateAccepted)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleStateUpdate(w, r, StateRejected)
}

func (h *Handler) handleStateUpdate(w http.ResponseWriter, r *http.Request, state string) {
	reviewer := r.Header.Get(reviewerHeader)
	if reviewer == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		Schema    string   `json:"schema"`
		Selection []string `json:"selection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(payload.Selection) == 0 {
		http.Error(w, "selection is required", http.StatusBadRequest)
		return
	}
	schema := payload.Schema
	if schema == "" {
		schema = h.defaultSchema
	}

	updated, err := h.repo.SetExaminationStates(r.Context(), schema, payload.Selection, state, reviewer)
	if err != nil {
		logger.Log.WithError(err).Error("failed to update examination states")
		http.Error(w, "failed to update examination states", http.StatusInternalServerError)
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"schema":  schema,
		"state":   state,
		"updated": updated,
		"user":    reviewer,
	}).Info("Examination states updated")
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

func (h *Handler) schema(r *http.Request) string {
	if schema := r.URL.Query().Get("schema"); schema != "" {
		return schema
	}
	return h.defaultSchema
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
