package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
)

const submitSource = "clinic-api"

var ErrSubmitNotAllowed = errors.New("user has no submit grants")

// Publisher dispatches a submission event onto the migration queue. The HTTP
// request only confirms the job was dispatched, never that it finished.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	repo      *Repository
	publisher Publisher
	eventType string
}

func NewService(repo *Repository, publisher Publisher, eventType string) *Service {
	return &Service{repo: repo, publisher: publisher, eventType: eventType}
}

// Forms returns the submission plus its read-only flag: a submission stays
// editable only while pending.
func (s *Service) Forms(ctx context.Context, patientID string) (*Submission, bool, error) {
	submission, err := s.repo.FindByPatientID(ctx, patientID)
	if err != nil {
		return nil, false, err
	}
	return submission, submission.State != StatePending, nil
}

func (s *Service) List(ctx context.Context) ([]Submission, error) {
	return s.repo.ListPending(ctx)
}

// Update replaces the submission document. Lock fields never round-trip
// from the client; locking goes through Lock/Unlock.
func (s *Service) Update(ctx context.Context, submission *Submission) error {
	submission.LockedBy = ""
	submission.LockedAt = nil
	return s.repo.Replace(ctx, submission)
}

func (s *Service) Lock(ctx context.Context, patientID, lockedBy string) error {
	return s.repo.Lock(ctx, patientID, lockedBy)
}

func (s *Service) Unlock(ctx context.Context, patientID string) error {
	return s.repo.Unlock(ctx, patientID)
}

// Submit enqueues the migration job for a pending submission and returns
// the request id. The pipeline itself runs out-of-band.
func (s *Service) Submit(ctx context.Context, settings models.SubmissionSettings) (string, error) {
	if !settings.User.CanSubmit() {
		return "", ErrSubmitNotAllowed
	}

	settings.RequestID = uuid.New().String()

	payload, err := models.SettingsPayload(settings)
	if err != nil {
		return "", fmt.Errorf("encoding submission settings: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, s.eventType, submitSource, payload); err != nil {
		return "", fmt.Errorf("publishing submission event: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"request_id": settings.RequestID,
		"patient_id": settings.PatientID,
		"user":       settings.User.Name,
	}).Info("Migration request dispatched")

	return settings.RequestID, nil
}
