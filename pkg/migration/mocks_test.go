package migration

import (
	"context"
	"sync"

	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
)

func ptr(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// --- fake intake store ---

var _ SubmissionStore = (*fakeSubmissionReader)(nil)

type fakeSubmissionReader struct {
	FindFunc func(ctx context.Context, patientID string) (*intake.Submission, error)

	mu          sync.Mutex
	StateFlips  []string // patient ids flipped to the given state
	SetStateErr error
}

func (f *fakeSubmissionReader) FindByPatientID(ctx context.Context, patientID string) (*intake.Submission, error) {
	return f.FindFunc(ctx, patientID)
}

func (f *fakeSubmissionReader) SetState(ctx context.Context, patientID, state, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetStateErr != nil {
		return f.SetStateErr
	}
	f.StateFlips = append(f.StateFlips, patientID+":"+state)
	return nil
}

// --- fake long-term writer ---

var _ LongTermWriter = (*fakeLongTermWriter)(nil)

type fakeLongTermWriter struct {
	mu            sync.Mutex
	Examinations  []*longterm.Examination
	RecordBatches [][]longterm.Record
	ExamErr       error
	RecordsErr    error
}

func (f *fakeLongTermWriter) UpsertExamination(ctx context.Context, exam *longterm.Examination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExamErr != nil {
		return f.ExamErr
	}
	f.Examinations = append(f.Examinations, exam)
	return nil
}

func (f *fakeLongTermWriter) UpsertRecords(ctx context.Context, records []longterm.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RecordsErr != nil {
		return f.RecordsErr
	}
	f.RecordBatches = append(f.RecordBatches, records)
	return nil
}

// --- fake encoding store ---

var _ EncodingWriter = (*fakeEncodingWriter)(nil)

type fakeEncodingWriter struct {
	mu      sync.Mutex
	Batches [][]longterm.Encoding
	Err     error
}

func (f *fakeEncodingWriter) SaveEncodings(ctx context.Context, encodings []longterm.Encoding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Batches = append(f.Batches, encodings)
	return nil
}

// RefFor resolves a destination path back to its source across all saved
// batches, mirroring the encoding store lookup.
func (f *fakeEncodingWriter) RefFor(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, batch := range f.Batches {
		for _, encoding := range batch {
			if encoding.Path == path {
				return encoding.Ref, true
			}
		}
	}
	return "", false
}

// --- fake examination store for the decision stage ---

var _ ExaminationStore = (*fakeExaminationStore)(nil)

type fakeExaminationStore struct {
	Exam     *longterm.Examination
	Records  []longterm.Record
	FetchErr error

	AcceptErr error
	Accepted  []string // examination ids
}

func (f *fakeExaminationStore) ExaminationWithRecords(ctx context.Context, schema, patientID string) (*longterm.Examination, []longterm.Record, error) {
	if f.FetchErr != nil {
		return nil, nil, f.FetchErr
	}
	if f.Exam == nil {
		return nil, nil, longterm.ErrExaminationNotFound
	}
	return f.Exam, f.Records, nil
}

func (f *fakeExaminationStore) AcceptExamination(ctx context.Context, schema, id, patientID string) error {
	if f.AcceptErr != nil {
		return f.AcceptErr
	}
	f.Accepted = append(f.Accepted, id)
	return nil
}

// --- fake identity store ---

var _ IdentityWriter = (*fakeIdentityWriter)(nil)

type fakeIdentityWriter struct {
	Mappings []longterm.IdentityMapping
	Err      error
}

func (f *fakeIdentityWriter) SaveIdentityMapping(ctx context.Context, mapping longterm.IdentityMapping) error {
	if f.Err != nil {
		return f.Err
	}
	f.Mappings = append(f.Mappings, mapping)
	return nil
}
