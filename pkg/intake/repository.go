package intake

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Submission{})
}

func (r *Repository) FindByPatientID(ctx context.Context, patientID string) (*Submission, error) {
	var submission Submission
	err := r.db.WithContext(ctx).First(&submission, "patient_id = ?", patientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// Replace writes the whole submission row back, matching the intake store's
// whole-document update semantics.
func (r *Repository) Replace(ctx context.Context, submission *Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *Repository) ListPending(ctx context.Context) ([]Submission, error) {
	var submissions []Submission
	err := r.db.WithContext(ctx).
		Where("state = ?", StatePending).
		Order("patient_id").
		Find(&submissions).Error
	return submissions, err
}

func (r *Repository) Lock(ctx context.Context, patientID, lockedBy string) error {
	now := time.Now().UTC()
	return r.updateFound(ctx, patientID, map[string]interface{}{
		"locked_by": lockedBy,
		"locked_at": &now,
	})
}

func (r *Repository) Unlock(ctx context.Context, patientID string) error {
	return r.updateFound(ctx, patientID, map[string]interface{}{
		"locked_by": "",
		"locked_at": nil,
	})
}

func (r *Repository) SetState(ctx context.Context, patientID, state, updatedBy string) error {
	return r.updateFound(ctx, patientID, map[string]interface{}{
		"state":      state,
		"updated_at": time.Now().UTC(),
		"updated_by": updatedBy,
	})
}

func (r *Repository) updateFound(ctx context.Context, patientID string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&Submission{}).
		Where("patient_id = ?", patientID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}
