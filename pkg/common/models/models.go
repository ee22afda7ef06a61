package models

import (
	"encoding/json"
	"time"
)

// Event is the envelope for every message crossing the Kafka bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // submit
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// SubmitTarget describes where a user's accepted examinations land.
type SubmitTarget struct {
	Schema       string `json:"schema"`
	Clinic       string `json:"clinic"`
	Organization string `json:"organization"`
}

// Grants is the preloaded access record for one clinician.
type Grants struct {
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Role          string        `json:"role"`
	PatientPrefix []string      `json:"patientPrefix"`
	Submit        *SubmitTarget `json:"submit,omitempty"`
}

// CanSubmit reports whether the clinician may trigger a migration.
func (g Grants) CanSubmit() bool {
	return g.Submit != nil && g.Submit.Schema != ""
}

// SubmissionSettings is the payload of one examination-submitted event.
// One event is emitted per clinician submit action.
type SubmissionSettings struct {
	RequestID    string `json:"requestId"`
	PatientID    string `json:"patientId"`
	Protocol     string `json:"protocol"`
	Organization string `json:"organization"`
	User         Grants `json:"user"`
}

// Schema returns the long-term namespace for this submission, falling back
// to the supplied default when the user carries no submit target.
func (s SubmissionSettings) Schema(defaultSchema string) string {
	if s.User.Submit != nil && s.User.Submit.Schema != "" {
		return s.User.Submit.Schema
	}
	return defaultSchema
}

// SettingsFromEvent decodes the event payload back into submission settings.
func SettingsFromEvent(event Event) (SubmissionSettings, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return SubmissionSettings{}, err
	}
	var settings SubmissionSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return SubmissionSettings{}, err
	}
	return settings, nil
}

// SettingsPayload renders submission settings as an event data map.
func SettingsPayload(settings SubmissionSettings) (map[string]interface{}, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
