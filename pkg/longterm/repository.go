package longterm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrExaminationNotFound = errors.New("examination not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Examination{}, &Record{})
}

// examinationKey is the conflict target for examination upserts: one row per
// patient per schema, replaced in place on re-sync.
var examinationKey = []clause.Column{
	{Name: "org_schema"},
	{Name: "patient_id"},
}

// recordKey identifies a recording across re-submissions regardless of the
// fresh random ids each submission mints.
var recordKey = []clause.Column{
	{Name: "org_schema"},
	{Name: "patient_id"},
	{Name: "body_position"},
	{Name: "body_spot"},
	{Name: "model"},
}

func (r *Repository) UpsertExamination(ctx context.Context, exam *Examination) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: examinationKey, UpdateAll: true}).
		Create(exam).Error
}

func (r *Repository) UpsertRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: recordKey, UpdateAll: true}).
		Create(&records).Error
}

func (r *Repository) FindExamination(ctx context.Context, schema, patientID string) (*Examination, error) {
	var exam Examination
	err := r.db.WithContext(ctx).
		Where("org_schema = ? AND patient_id = ?", schema, patientID).
		First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExaminationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// ExaminationWithRecords join-fetches the examination header together with
// the record set produced by its last sync run.
func (r *Repository) ExaminationWithRecords(ctx context.Context, schema, patientID string) (*Examination, []Record, error) {
	exam, err := r.FindExamination(ctx, schema, patientID)
	if err != nil {
		return nil, nil, err
	}

	var records []Record
	err = r.db.WithContext(ctx).
		Where("org_schema = ? AND patient_id = ?", schema, patientID).
		Order("body_position, body_spot, model").
		Find(&records).Error
	if err != nil {
		return nil, nil, err
	}
	return exam, records, nil
}

func (r *Repository) UpdateExaminationFields(ctx context.Context, schema, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&Examination{}).
		Where("org_schema = ? AND id = ?", schema, id).
		Updates(fields).Error
}

// AcceptExamination is the single conceptual transaction of the auto-accept
// stage: flip the state and remove the direct patient linkage from the
// examination and every associated record. The linkage clears to NULL, never
// "", so the unique indexes keep treating accepted rows as distinct.
func (r *Repository) AcceptExamination(ctx context.Context, schema, id, patientID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Examination{}).
			Where("org_schema = ? AND id = ?", schema, id).
			Updates(map[string]interface{}{
				"state":      StateAccepted,
				"patient_id": nil,
				"updated_at": now,
				"updated_by": AutoAcceptActor,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&Record{}).
			Where("org_schema = ? AND patient_id = ?", schema, patientID).
			Updates(map[string]interface{}{
				"patient_id": nil,
				"updated_at": now,
				"updated_by": AutoAcceptActor,
			}).Error
	})
}

// StateCount is one slice of the review state chart.
type StateCount struct {
	Label string `gorm:"column:label" json:"label"`
	Value int64  `gorm:"column:value" json:"value"`
}

// StateChart aggregates examinations per review state for one schema.
func (r *Repository) StateChart(ctx context.Context, schema string) ([]StateCount, error) {
	var counts []StateCount
	err := r.db.WithContext(ctx).
		Model(&Examination{}).
		Select("state AS label, COUNT(*) AS value").
		Where("org_schema = ?", schema).
		Group("state").
		Order("state").
		Scan(&counts).Error
	return counts, err
}

// ListExaminations returns the most recently submitted examinations for the
// management view, optionally filtered by state.
func (r *Repository) ListExaminations(ctx context.Context, schema, state string, limit int) ([]Examination, error) {
	query := r.db.WithContext(ctx).Where("org_schema = ?", schema)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	var exams []Examination
	err := query.Order("submited_at DESC, patient_id DESC").Limit(limit).Find(&exams).Error
	return exams, err
}

// SetExaminationStates bulk-updates the review state for a selection of
// examination ids, stamping the acting reviewer. Returns how many rows the
// selection actually matched.
func (r *Repository) SetExaminationStates(ctx context.Context, schema string, ids []string, state, updatedBy string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&Examination{}).
		Where("org_schema = ? AND id IN ?", schema, ids).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": time.Now().UTC(),
			"updated_by": updatedBy,
		})
	return result.RowsAffected, result.Error
}

type EncodingRepository struct {
	db *gorm.DB
}

func NewEncodingRepository(db *gorm.DB) *EncodingRepository {
	return &EncodingRepository{db: db}
}

func (r *EncodingRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Encoding{}, &IdentityMapping{})
}

// SaveEncodings upserts the path-to-source batch keyed by destination path.
// Re-resolving the same destination is an overwrite, not a duplicate.
func (r *EncodingRepository) SaveEncodings(ctx context.Context, encodings []Encoding) error {
	if len(encodings) == 0 {
		return nil
	}
	for i := range encodings {
		if encodings[i].CreatedAt.IsZero() {
			encodings[i].CreatedAt = time.Now().UTC()
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "path"}}, UpdateAll: true}).
		Create(&encodings).Error
}

func (r *EncodingRepository) RefFor(ctx context.Context, path string) (string, error) {
	var encoding Encoding
	if err := r.db.WithContext(ctx).First(&encoding, "path = ?", path).Error; err != nil {
		return "", err
	}
	return encoding.Ref, nil
}

func (r *EncodingRepository) SaveIdentityMapping(ctx context.Context, mapping IdentityMapping) error {
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&mapping).Error
}

func (r *EncodingRepository) PatientFor(ctx context.Context, examinationID string) (string, error) {
	var mapping IdentityMapping
	if err := r.db.WithContext(ctx).First(&mapping, "id = ?", examinationID).Error; err != nil {
		return "", err
	}
	return mapping.PatientID, nil
}
