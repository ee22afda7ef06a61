package intake

import (
	"encoding/json"
	"time"

	"github.com/sparrowhealth/clinic-platform/pkg/forms"
	"gorm.io/datatypes"
)

// Submission states. A submission is editable while pending and becomes
// read-only once migration starts.
const (
	StatePending   = "pending"
	StateFinalized = "finalized"
)

// Attachment is one uploaded file reference. During asset resolution the
// path, name and url are rewritten in place to the anonymized destination.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// SourceRef points at a recording binary in object storage.
type SourceRef struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

// Recording is one auscultation capture within a submission.
type Recording struct {
	Device            string    `json:"device"`
	DeviceDescription string    `json:"deviceDescription"`
	BodyPosition      string    `json:"bodyPosition"`
	Spot              string    `json:"spot"`
	Quality           string    `json:"quality"`
	Source            SourceRef `json:"Source"`
}

// Submission is the clinician-editable pending examination, one row per
// patient. Lock fields are advisory only.
type Submission struct {
	PatientID     string            `gorm:"primaryKey;column:patient_id" json:"patientId"`
	ExaminationID string            `gorm:"column:examination_id" json:"examinationId"`
	State         string            `gorm:"column:state" json:"state"`
	Protocol      string            `gorm:"column:protocol" json:"protocol"`
	Comment       string            `gorm:"column:comment" json:"comment"`
	DateTime      time.Time         `gorm:"column:date_time" json:"dateTime"`
	Patient       datatypes.JSONMap `gorm:"column:patient" json:"patient"`
	EKG           datatypes.JSONMap `gorm:"column:ekg" json:"ekg"`
	Echo          datatypes.JSONMap `gorm:"column:echo" json:"echo"`
	Attachements  datatypes.JSON    `gorm:"column:attachements" json:"attachements"`
	Recordings    datatypes.JSON    `gorm:"column:recordings" json:"recordings"`
	LockedBy      string            `gorm:"column:locked_by" json:"lockedBy,omitempty"`
	LockedAt      *time.Time        `gorm:"column:locked_at" json:"lockedAt,omitempty"`
	UpdatedAt     time.Time         `gorm:"column:updated_at" json:"updatedAt"`
	UpdatedBy     string            `gorm:"column:updated_by" json:"updatedBy"`
}

func (Submission) TableName() string { return "submissions" }

// Bundle projects the submission's form sections for rule evaluation.
// Missing sections become explicit empty variants.
func (s *Submission) Bundle() forms.Bundle {
	return forms.Bundle{
		Protocol: s.Protocol,
		Patient:  sectionFields(s.Patient),
		EKG:      sectionFields(s.EKG),
		Echo:     sectionFields(s.Echo),
	}
}

func sectionFields(m datatypes.JSONMap) forms.Fields {
	if m == nil {
		return forms.EmptyFields()
	}
	return forms.Fields(m)
}

// AttachmentList decodes the attachment array. An absent column yields an
// empty list.
func (s *Submission) AttachmentList() ([]Attachment, error) {
	if len(s.Attachements) == 0 {
		return []Attachment{}, nil
	}
	var attachments []Attachment
	if err := json.Unmarshal(s.Attachements, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

func (s *Submission) SetAttachmentList(attachments []Attachment) error {
	raw, err := json.Marshal(attachments)
	if err != nil {
		return err
	}
	s.Attachements = datatypes.JSON(raw)
	return nil
}

// RecordingList decodes the recordings array.
func (s *Submission) RecordingList() ([]Recording, error) {
	if len(s.Recordings) == 0 {
		return []Recording{}, nil
	}
	var recordings []Recording
	if err := json.Unmarshal(s.Recordings, &recordings); err != nil {
		return nil, err
	}
	return recordings, nil
}
