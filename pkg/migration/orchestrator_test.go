package migration

import (
	"context"
	"sync"
	"testing"

	"github.com/sparrowhealth/clinic-platform/pkg/bodyspots"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/stretchr/testify/assert"
)

func newTestMigrator(reader SubmissionStore, writer LongTermWriter, store ExaminationStore) *Migrator {
	syncer, _, _ := newTestSyncer(reader, writer)
	accepter := NewAutoAccept(store, &fakeIdentityWriter{}, bodyspots.DefaultCatalog())
	return NewMigrator(syncer, accepter, "default")
}

func TestHandleEventRunsPipeline(t *testing.T) {
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			return pendingSubmission(t), nil
		},
	}
	writer := &fakeLongTermWriter{}
	migrator := newTestMigrator(reader, writer, &fakeExaminationStore{})

	payload, err := models.SettingsPayload(testSettings())
	assert.NoError(t, err)

	err = migrator.HandleEvent(context.Background(), models.Event{
		ID:     "evt-1",
		Type:   "examination-submitted",
		Source: "clinic-api",
		Data:   payload,
	})
	assert.NoError(t, err)
	assert.Len(t, writer.Examinations, 1)
	assert.Len(t, writer.RecordBatches, 1)
}

func TestHandleEventDiscardsWithoutPatientID(t *testing.T) {
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			t.Fatal("pipeline must not run for an event without a patient id")
			return nil, nil
		},
	}
	writer := &fakeLongTermWriter{}
	migrator := newTestMigrator(reader, writer, &fakeExaminationStore{})

	err := migrator.HandleEvent(context.Background(), models.Event{ID: "evt-2", Data: map[string]interface{}{}})
	assert.NoError(t, err, "discarded events are still committed")
	assert.Empty(t, writer.Examinations)
}

func TestRunSerializesPerPatient(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
			defer func() {
				mu.Lock()
				inFlight--
				mu.Unlock()
			}()
			return pendingSubmission(t), nil
		},
	}
	writer := &fakeLongTermWriter{}
	migrator := newTestMigrator(reader, writer, &fakeExaminationStore{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			migrator.Run(context.Background(), testSettings())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "same-patient runs must never overlap")
	assert.Len(t, writer.Examinations, 8)
}

func TestRunSyncFailureStopsBeforeAcceptance(t *testing.T) {
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			return pendingSubmission(t), nil
		},
	}
	writer := &fakeLongTermWriter{ExamErr: assert.AnError}
	store := &fakeExaminationStore{Exam: cleanExamination(t), Records: goodRecords(4)}
	migrator := newTestMigrator(reader, writer, store)

	migrator.Run(context.Background(), testSettings())
	assert.Empty(t, store.Accepted, "a failed sync must not reach the decision stage")
}
