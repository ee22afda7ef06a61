package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sparrowhealth/clinic-platform/pkg/bodyspots"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"github.com/sparrowhealth/clinic-platform/pkg/storage"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func testSettings() models.SubmissionSettings {
	return models.SubmissionSettings{
		RequestID:    "req-1",
		PatientID:    "ABC0001",
		Protocol:     "Complete Protocol",
		Organization: "demo-clinic",
		User: models.Grants{
			Email: "doctor@clinic.example",
			Name:  "Dr. Demo",
			Submit: &models.SubmitTarget{
				Schema:       "demo",
				Clinic:       "Demo Clinic",
				Organization: "demo-clinic",
			},
		},
	}
}

func pendingSubmission(t *testing.T) *intake.Submission {
	t.Helper()
	recordings, err := json.Marshal([]intake.Recording{
		{
			Device:       "stetho-one",
			BodyPosition: "Sitting",
			Spot:         "mitral",
			Quality:      "good",
			Source:       intake.SourceRef{Path: "rec/1.wav"},
		},
		{
			Device:       "stetho-one",
			BodyPosition: "Sitting",
			Spot:         "aortic",
			Quality:      "good",
			Source:       intake.SourceRef{Path: "rec/2.wav"},
		},
	})
	if err != nil {
		t.Fatalf("seeding recordings: %v", err)
	}

	return &intake.Submission{
		PatientID: "ABC0001",
		State:     intake.StatePending,
		Comment:   "routine checkup",
		Patient: datatypes.JSONMap{
			"age":          54.0,
			"sex_at_birth": "Female",
			"ethnicity":    "Other",
		},
		EKG:        datatypes.JSONMap{},
		Echo:       datatypes.JSONMap{"ef": 58.0},
		Recordings: datatypes.JSON(recordings),
	}
}

func newTestSyncer(reader SubmissionStore, writer LongTermWriter) (*Syncer, *fakeEncodingWriter, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	encodings := &fakeEncodingWriter{}
	resolver := NewResolver(store, encodings, "long-term")
	syncer := NewSyncer(reader, writer, resolver, bodyspots.DefaultCatalog(), "default")
	return syncer, encodings, store
}

func TestSyncAbsentSubmissionIsNoOp(t *testing.T) {
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			return nil, intake.ErrSubmissionNotFound
		},
	}
	writer := &fakeLongTermWriter{}
	syncer, encodings, _ := newTestSyncer(reader, writer)

	result, err := syncer.Sync(context.Background(), testSettings())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, writer.Examinations, "absent submission must perform zero writes")
	assert.Empty(t, writer.RecordBatches)
	assert.Empty(t, encodings.Batches)
	assert.Empty(t, reader.StateFlips)
}

func TestSyncWritesExaminationAndRecords(t *testing.T) {
	submission := pendingSubmission(t)
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			return submission, nil
		},
	}
	writer := &fakeLongTermWriter{}
	syncer, _, _ := newTestSyncer(reader, writer)

	result, err := syncer.Sync(context.Background(), testSettings())
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, []string{"ABC0001:finalized"}, reader.StateFlips)

	assert.Len(t, writer.Examinations, 1)
	exam := writer.Examinations[0]
	assert.Equal(t, "demo", exam.Schema)
	assert.Equal(t, "ABC0001", deref(exam.PatientID))
	assert.Equal(t, longterm.StateInReview, exam.State)
	assert.Equal(t, "Complete Protocol", exam.Protocol)
	assert.NotEmpty(t, exam.ID)
	assert.False(t, exam.SubmitedAt.IsZero())

	var document FormsDocument
	assert.NoError(t, json.Unmarshal(exam.Forms, &document))
	assert.Equal(t, "Female", document.Patient.Str("sex_at_birth"))

	assert.Len(t, writer.RecordBatches, 1)
	records := writer.RecordBatches[0]
	assert.Len(t, records, 2)
	assert.Equal(t, "Apex", records[0].BodySpot)
	assert.Equal(t, "Aortic", records[1].BodySpot)
	for _, record := range records {
		assert.Equal(t, "demo", record.Schema)
		assert.Equal(t, "ABC0001", deref(record.PatientID))
		assert.Equal(t, "54", record.Age)
		assert.Equal(t, "Female", record.SexAtBirth)
		assert.Equal(t, "Demo Clinic", record.Clinic)
		assert.Equal(t, "Assign 2nd expert", record.State)
	}
}

func TestSyncRecordKeysAreStableAcrossRuns(t *testing.T) {
	keyOf := func(r longterm.Record) string {
		return fmt.Sprintf("%s|%s|%s|%s|%s", r.Schema, deref(r.PatientID), r.BodyPosition, r.BodySpot, r.Model)
	}

	writer := &fakeLongTermWriter{}
	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			// Fresh decode each run, the way the store hands out documents.
			return pendingSubmission(t), nil
		},
	}
	syncer, _, _ := newTestSyncer(reader, writer)

	_, err := syncer.Sync(context.Background(), testSettings())
	assert.NoError(t, err)
	_, err = syncer.Sync(context.Background(), testSettings())
	assert.NoError(t, err)

	assert.Len(t, writer.RecordBatches, 2)
	first, second := writer.RecordBatches[0], writer.RecordBatches[1]
	assert.Equal(t, len(first), len(second))
	for i := range first {
		// New random ids every run, identical upsert keys: the second batch
		// replaces the first instead of duplicating it.
		assert.NotEqual(t, first[i].ID, second[i].ID)
		assert.Equal(t, keyOf(first[i]), keyOf(second[i]))
	}
}

func TestSyncUnmappedSpotKeepsRecord(t *testing.T) {
	submission := pendingSubmission(t)
	recordings, _ := json.Marshal([]intake.Recording{
		{Device: "stetho-one", BodyPosition: "Sitting", Spot: "sternum", Quality: "good"},
	})
	submission.Recordings = datatypes.JSON(recordings)

	reader := &fakeSubmissionReader{
		FindFunc: func(ctx context.Context, patientID string) (*intake.Submission, error) {
			return submission, nil
		},
	}
	writer := &fakeLongTermWriter{}
	syncer, _, _ := newTestSyncer(reader, writer)

	result, err := syncer.Sync(context.Background(), testSettings())
	assert.NoError(t, err)
	assert.Len(t, result.Records, 1)
	// The gap is logged, the record survives with an empty label.
	assert.Equal(t, "", result.Records[0].BodySpot)
}
