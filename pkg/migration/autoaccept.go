package migration

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sparrowhealth/clinic-platform/pkg/bodyspots"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"github.com/sparrowhealth/clinic-platform/pkg/rules"
)

// Outcome is the terminal state of one auto-accept attempt.
type Outcome string

const (
	OutcomeAccepted     Outcome = "ACCEPTED"
	OutcomeNoAcceptance Outcome = "NO_ACCEPTANCE"
	OutcomeFailed       Outcome = "FAILED"
)

// ExaminationStore is the long-term surface the decision stage needs.
type ExaminationStore interface {
	ExaminationWithRecords(ctx context.Context, schema, patientID string) (*longterm.Examination, []longterm.Record, error)
	AcceptExamination(ctx context.Context, schema, id, patientID string) error
}

// IdentityWriter records the examination-to-patient mapping before the
// linkage is removed from the long-term store.
type IdentityWriter interface {
	SaveIdentityMapping(ctx context.Context, mapping longterm.IdentityMapping) error
}

// AutoAccept re-reads the freshly migrated examination and decides whether
// it can skip manual review. Errors are contained here: a failed attempt
// leaves the examination in review and never crashes the orchestrator.
type AutoAccept struct {
	store      ExaminationStore
	identities IdentityWriter
	catalog    bodyspots.Catalog
}

func NewAutoAccept(store ExaminationStore, identities IdentityWriter, catalog bodyspots.Catalog) *AutoAccept {
	return &AutoAccept{store: store, identities: identities, catalog: catalog}
}

// Run evaluates the acceptance criteria and the record quality gate, and on
// a double pass finalizes the examination: identity mapping first, then the
// state flip with linkage removal, so the removed link is always recoverable.
func (a *AutoAccept) Run(ctx context.Context, settings models.SubmissionSettings, schema string) Outcome {
	log := logger.Log.WithFields(map[string]interface{}{
		"patient_id": settings.PatientID,
		"schema":     schema,
	})

	exam, records, err := a.store.ExaminationWithRecords(ctx, schema, settings.PatientID)
	if errors.Is(err, longterm.ErrExaminationNotFound) {
		log.Warn("Auto accept: examination not found")
		return OutcomeNoAcceptance
	}
	if err != nil {
		log.WithError(err).Error("Auto accept: fetch failed")
		return OutcomeFailed
	}

	var document FormsDocument
	if err := json.Unmarshal(exam.Forms, &document); err != nil {
		log.WithError(err).Error("Auto accept: malformed forms document")
		return OutcomeFailed
	}

	violations := rules.Evaluate(document.Bundle(exam.Protocol))
	qualities := a.consideredQualities(records)

	if len(violations) > 0 || !rules.AcceptableQuality(qualities) {
		log.WithFields(map[string]interface{}{
			"violations":         violations,
			"considered_records": len(qualities),
		}).Info("Auto accept: no acceptance criteria")
		return OutcomeNoAcceptance
	}

	patientID := ""
	if exam.PatientID != nil {
		patientID = *exam.PatientID
	}

	// The mapping must exist before the linkage disappears; a mapping with
	// no anonymized examination is harmless, the reverse is not.
	mapping := longterm.IdentityMapping{ID: exam.ID, PatientID: patientID}
	if err := a.identities.SaveIdentityMapping(ctx, mapping); err != nil {
		log.WithError(err).Error("Auto accept: identity mapping write failed")
		return OutcomeFailed
	}

	if err := a.store.AcceptExamination(ctx, schema, exam.ID, patientID); err != nil {
		log.WithError(err).Error("Auto accept: accept update failed")
		return OutcomeFailed
	}

	log.WithField("examination_id", exam.ID).Info("Auto accept: ACCEPT")
	return OutcomeAccepted
}

// consideredQualities keeps only recordings taken at body spots the
// acceptance protocol covers; everything else is excluded from the quality
// computation entirely rather than counted as bad.
func (a *AutoAccept) consideredQualities(records []longterm.Record) []string {
	var qualities []string
	for _, record := range records {
		if a.catalog.IsAvailable(record.BodySpot) {
			qualities = append(qualities, record.Quality)
		}
	}
	return qualities
}
