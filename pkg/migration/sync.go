package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sparrowhealth/clinic-platform/pkg/bodyspots"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/forms"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"gorm.io/datatypes"
)

// recordInitialState is the review workflow entry point for a freshly
// migrated record.
const (
	recordInitialState   = "Assign 2nd expert"
	recordImportComment  = "Added by migration"
	recordImportActor    = "migration"
)

// FormsDocument is the forms sub-document written into the long-term
// examination header. Missing sections are stored as explicit empty
// variants.
type FormsDocument struct {
	Patient      forms.Fields        `json:"patient"`
	EKG          forms.Fields        `json:"ekg"`
	Echo         forms.Fields        `json:"echo"`
	Attachements []intake.Attachment `json:"attachements"`
}

// Bundle projects the document for rule evaluation.
func (d FormsDocument) Bundle(protocol string) forms.Bundle {
	bundle := forms.Bundle{
		Protocol: protocol,
		Patient:  d.Patient,
		EKG:      d.EKG,
		Echo:     d.Echo,
	}
	if bundle.Patient == nil {
		bundle.Patient = forms.EmptyFields()
	}
	if bundle.EKG == nil {
		bundle.EKG = forms.EmptyFields()
	}
	if bundle.Echo == nil {
		bundle.Echo = forms.EmptyFields()
	}
	return bundle
}

// SubmissionStore is the intake-store surface the sync stage needs: fetch
// the pending submission and flip it read-only once migrated.
type SubmissionStore interface {
	FindByPatientID(ctx context.Context, patientID string) (*intake.Submission, error)
	SetState(ctx context.Context, patientID, state, updatedBy string) error
}

// LongTermWriter executes the ordered upsert batches against the long-term
// store.
type LongTermWriter interface {
	UpsertExamination(ctx context.Context, exam *longterm.Examination) error
	UpsertRecords(ctx context.Context, records []longterm.Record) error
}

// SyncResult reports what one sync run wrote. A nil result means there was
// no pending submission: nothing to migrate, not a failure.
type SyncResult struct {
	Examination    *longterm.Examination
	Records        []longterm.Record
	ResolvedAssets int
}

type Syncer struct {
	submissions   SubmissionStore
	longTerm      LongTermWriter
	resolver      *Resolver
	catalog       bodyspots.Catalog
	defaultSchema string
}

func NewSyncer(submissions SubmissionStore, longTerm LongTermWriter, resolver *Resolver, catalog bodyspots.Catalog, defaultSchema string) *Syncer {
	return &Syncer{
		submissions:   submissions,
		longTerm:      longTerm,
		resolver:      resolver,
		catalog:       catalog,
		defaultSchema: defaultSchema,
	}
}

// Sync migrates one pending submission into the long-term store: resolve
// assets, merge operator settings, transform into the long-term shapes and
// run the two ordered upsert batches (examination first, then records).
func (s *Syncer) Sync(ctx context.Context, settings models.SubmissionSettings) (*SyncResult, error) {
	submission, err := s.submissions.FindByPatientID(ctx, settings.PatientID)
	if errors.Is(err, intake.ErrSubmissionNotFound) {
		logger.Log.WithField("patient_id", settings.PatientID).Info("No pending submission, nothing to migrate")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching submission %s: %w", settings.PatientID, err)
	}

	resolved, err := s.resolver.Resolve(ctx, submission)
	if err != nil {
		return nil, err
	}

	// Operator-supplied settings win over whatever the form carried.
	if settings.Protocol != "" {
		submission.Protocol = settings.Protocol
	}

	exam, err := s.buildExamination(submission, settings)
	if err != nil {
		return nil, err
	}

	records, err := s.buildRecords(submission, settings, exam.Schema)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"patient_id": settings.PatientID,
		"schema":     exam.Schema,
		"records":    len(records),
	}).Info("Writing examination and records")

	if err := s.longTerm.UpsertExamination(ctx, exam); err != nil {
		return nil, fmt.Errorf("upserting examination %s: %w", settings.PatientID, err)
	}
	if err := s.longTerm.UpsertRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("upserting records %s: %w", settings.PatientID, err)
	}

	// The submission goes read-only once its data lives in the long-term
	// store. A failure here leaves it editable; the next sync finalizes it.
	if err := s.submissions.SetState(ctx, settings.PatientID, intake.StateFinalized, recordImportActor); err != nil {
		logger.Log.WithError(err).WithField("patient_id", settings.PatientID).
			Warn("Failed to finalize submission")
	}

	return &SyncResult{
		Examination:    exam,
		Records:        records,
		ResolvedAssets: resolved,
	}, nil
}

func (s *Syncer) buildExamination(submission *intake.Submission, settings models.SubmissionSettings) (*longterm.Examination, error) {
	attachments, err := submission.AttachmentList()
	if err != nil {
		return nil, fmt.Errorf("decoding attachments: %w", err)
	}

	document := FormsDocument{
		Patient:      sectionOrEmpty(submission.Patient),
		EKG:          sectionOrEmpty(submission.EKG),
		Echo:         sectionOrEmpty(submission.Echo),
		Attachements: attachments,
	}
	rawForms, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encoding forms document: %w", err)
	}

	patientID := submission.PatientID
	now := time.Now().UTC()
	return &longterm.Examination{
		ID:           uuid.New().String(),
		Schema:       settings.Schema(s.defaultSchema),
		PatientID:    &patientID,
		ActorID:      settings.User.Email,
		Organization: settings.Organization,
		Protocol:     submission.Protocol,
		State:        longterm.StateInReview,
		Comment:      submission.Comment,
		Forms:        datatypes.JSON(rawForms),
		CreatedAt:    now,
		SubmitedAt:   now,
		UpdatedAt:    now,
		UpdatedBy:    recordImportActor,
	}, nil
}

func (s *Syncer) buildRecords(submission *intake.Submission, settings models.SubmissionSettings, schema string) ([]longterm.Record, error) {
	recordings, err := submission.RecordingList()
	if err != nil {
		return nil, fmt.Errorf("decoding recordings: %w", err)
	}

	patient := sectionOrEmpty(submission.Patient)
	patientID := submission.PatientID
	clinic := ""
	if settings.User.Submit != nil {
		clinic = settings.User.Submit.Clinic
	}

	now := time.Now().UTC()
	records := make([]longterm.Record, 0, len(recordings))
	for _, recording := range recordings {
		label, ok := s.catalog.Label(recording.Spot)
		if !ok {
			// Data-quality gap: keep the record so it surfaces in review,
			// but never silently invent a location.
			logger.Log.WithFields(map[string]interface{}{
				"patient_id": submission.PatientID,
				"spot":       recording.Spot,
			}).Warn("Recording spot missing from catalog")
		}

		records = append(records, longterm.Record{
			ID:                uuid.New().String(),
			Schema:            schema,
			PatientID:         &patientID,
			BodyPosition:      recording.BodyPosition,
			BodySpot:          label,
			Model:             recording.Device,
			DeviceDescription: recording.DeviceDescription,
			Clinic:            clinic,
			Age:               demographicString(patient, "age"),
			SexAtBirth:        patient.Str("sex_at_birth"),
			Ethnicity:         patient.Str("ethnicity"),
			Quality:           recording.Quality,
			Path:              recording.Source.Path,
			Source: datatypes.JSONMap{
				"path": recording.Source.Path,
				"url":  recording.Source.URL,
			},
			Findings:     longterm.EmptyFindings(),
			State:        recordInitialState,
			StageComment: recordImportComment,
			UpdatedAt:    now,
			UpdatedBy:    recordImportActor,
		})
	}
	return records, nil
}

func sectionOrEmpty(m datatypes.JSONMap) forms.Fields {
	if m == nil {
		return forms.EmptyFields()
	}
	return forms.Fields(m)
}

// demographicString renders a numeric-or-string demographic field the way
// the long-term store expects it.
func demographicString(patient forms.Fields, field string) string {
	if value, ok := patient.Float(field); ok {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return patient.Str(field)
}
