package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/preload"
)

// userHeader carries the authenticated clinician email set by the gateway.
// Validating the upstream token is the gateway's job, not ours.
const userHeader = "X-User-Email"

// GrantsResolver maps a clinician email to their preloaded access record.
type GrantsResolver interface {
	Grants(ctx context.Context, email string) (models.Grants, error)
}

type Handler struct {
	service *Service
	grants  GrantsResolver
}

func NewHandler(service *Service, grants GrantsResolver) *Handler {
	return &Handler{service: service, grants: grants}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/forms", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/forms/{patientId}", h.handleGetForms).Methods(http.MethodGet)
	r.HandleFunc("/forms/{patientId}", h.handleUpdateForms).Methods(http.MethodPut)
	r.HandleFunc("/forms/{patientId}/lock", h.handleLock).Methods(http.MethodPost)
	r.HandleFunc("/forms/{patientId}/unlock", h.handleUnlock).Methods(http.MethodPost)
	r.HandleFunc("/forms/{patientId}/submit", h.handleSubmit).Methods(http.MethodPost)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list submissions")
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": submissions})
}

func (h *Handler) handleGetForms(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	submission, readonly, err := h.service.Forms(r.Context(), patientID)
	if errors.Is(err, ErrSubmissionNotFound) {
		http.Error(w, "submission not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get forms")
		http.Error(w, "failed to get forms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"forms":    submission,
		"readonly": readonly,
	})
}

func (h *Handler) handleUpdateForms(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]

	var submission Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	submission.PatientID = patientID
	submission.UpdatedBy = r.Header.Get(userHeader)

	if err := h.service.Update(r.Context(), &submission); err != nil {
		logger.Log.WithError(err).Error("failed to update forms")
		http.Error(w, "failed to update forms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"forms": submission})
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	email := r.Header.Get(userHeader)
	if email == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	if err := h.service.Lock(r.Context(), patientID, email); err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to lock forms")
		http.Error(w, "failed to lock forms", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	if err := h.service.Unlock(r.Context(), patientID); err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to unlock forms")
		http.Error(w, "failed to unlock forms", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	email := r.Header.Get(userHeader)
	if email == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		Protocol     string `json:"protocol"`
		Organization string `json:"organization"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}

	grants, err := h.grants.Grants(r.Context(), email)
	if errors.Is(err, preload.ErrGrantsNotFound) {
		logger.Log.WithField("user", email).Warn("submit rejected: no grants")
		http.Error(w, "user may not submit", http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Log.WithError(err).WithField("user", email).Error("failed to resolve grants")
		http.Error(w, "failed to resolve grants", http.StatusInternalServerError)
		return
	}

	settings := models.SubmissionSettings{
		PatientID:    patientID,
		Protocol:     payload.Protocol,
		Organization: payload.Organization,
		User:         grants,
	}
	if settings.Organization == "" && grants.Submit != nil {
		settings.Organization = grants.Submit.Organization
	}

	requestID, err := h.service.Submit(r.Context(), settings)
	if errors.Is(err, ErrSubmitNotAllowed) {
		http.Error(w, "user may not submit", http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to dispatch submission")
		http.Error(w, "failed to dispatch submission", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"requestId": requestID})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
