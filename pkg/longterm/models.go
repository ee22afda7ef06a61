package longterm

import (
	"time"

	"gorm.io/datatypes"
)

// Examination states in the long-term store. "accepted" is terminal for the
// automatic path; manual review may still override it.
const (
	StateInReview = "inReview"
	StateAccepted = "accepted"
	StateRejected = "rejected"
	StateLocked   = "locked"
)

// AutoAcceptActor is stamped into updated_by when the pipeline flips state.
const AutoAcceptActor = "AUTO ACCEPT"

// Examination is the migrated examination header. One row per patient and
// schema; re-running the sync replaces the row in place. The patient linkage
// is nullable: acceptance clears it to NULL, and NULLs stay distinct under
// the unique index, so any number of accepted rows can coexist per schema.
type Examination struct {
	ID           string         `gorm:"primaryKey;column:id" json:"id"`
	Schema       string         `gorm:"column:org_schema;uniqueIndex:idx_examinations_schema_patient" json:"schema"`
	PatientID    *string        `gorm:"column:patient_id;uniqueIndex:idx_examinations_schema_patient" json:"patientId"`
	ActorID      string         `gorm:"column:actor_id" json:"actorId"`
	Organization string         `gorm:"column:organization" json:"organization"`
	Protocol     string         `gorm:"column:protocol" json:"protocol"`
	State        string         `gorm:"column:state" json:"state"`
	Comment      string         `gorm:"column:comment" json:"comment"`
	Forms        datatypes.JSON `gorm:"column:forms" json:"forms"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"createdAt"`
	SubmitedAt   time.Time      `gorm:"column:submited_at" json:"submitedAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updatedAt"`
	UpdatedBy    string         `gorm:"column:updated_by" json:"updatedBy"`
}

func (Examination) TableName() string { return "examinations" }

// Record is one migrated recording label. The upsert key is the tuple
// (schema, patient, body position, body spot, device model): recordings are
// re-submitted with fresh random ids, the tuple is what identifies them.
// The patient linkage clears to NULL on acceptance, same as Examination.
type Record struct {
	ID                string            `gorm:"primaryKey;column:id" json:"id"`
	Schema            string            `gorm:"column:org_schema;uniqueIndex:idx_labels_key" json:"schema"`
	PatientID         *string           `gorm:"column:patient_id;uniqueIndex:idx_labels_key" json:"patientId"`
	BodyPosition      string            `gorm:"column:body_position;uniqueIndex:idx_labels_key" json:"bodyPosition"`
	BodySpot          string            `gorm:"column:body_spot;uniqueIndex:idx_labels_key" json:"bodySpot"`
	Model             string            `gorm:"column:model;uniqueIndex:idx_labels_key" json:"model"`
	DeviceDescription string            `gorm:"column:device_description" json:"deviceDescription"`
	Clinic            string            `gorm:"column:clinic" json:"clinic"`
	Age               string            `gorm:"column:age_years" json:"ageYears"`
	SexAtBirth        string            `gorm:"column:sex_at_birth" json:"sexAtBirth"`
	Ethnicity         string            `gorm:"column:ethnicity" json:"ethnicity"`
	Quality           string            `gorm:"column:quality" json:"quality"`
	Path              string            `gorm:"column:path" json:"path"`
	Source            datatypes.JSONMap `gorm:"column:source" json:"source"`
	Findings          datatypes.JSONMap `gorm:"column:findings" json:"findings"`
	State             string            `gorm:"column:state" json:"state"`
	AssignedTo        string            `gorm:"column:assigned_to" json:"assignedTo"`
	StageComment      string            `gorm:"column:stage_comment" json:"stageComment"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updatedAt"`
	UpdatedBy         string            `gorm:"column:updated_by" json:"updatedBy"`
}

func (Record) TableName() string { return "labels" }

// EmptyFindings is the review worksheet a freshly migrated record starts
// with; experts fill the categories during manual labelling.
func EmptyFindings() datatypes.JSONMap {
	return datatypes.JSONMap{
		"Type of artifacts , Artifact": []interface{}{},
		"Systolic murmurs":             []interface{}{},
		"Diastolic murmurs":            []interface{}{},
		"Other murmurs":                []interface{}{},
		"Pathological findings":        []interface{}{},
	}
}

// Encoding maps an anonymized long-term asset path back to its intake
// source. Append-only; re-resolution overwrites the same destination key.
type Encoding struct {
	Path      string    `gorm:"primaryKey;column:path" json:"path"`
	Ref       string    `gorm:"column:ref" json:"ref"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Encoding) TableName() string { return "encodings" }

// IdentityMapping preserves the examination-to-patient link removed from the
// long-term store at acceptance, recoverable only by authorized lookup.
type IdentityMapping struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	PatientID string    `gorm:"column:patient_id" json:"patientId"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (IdentityMapping) TableName() string { return "identity_mappings" }
