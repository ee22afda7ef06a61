package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type fakePublisher struct {
	Events []map[string]interface{}
	Err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	if f.Err != nil {
		return f.Err
	}
	f.Events = append(f.Events, data)
	return nil
}

func submitSettings() models.SubmissionSettings {
	return models.SubmissionSettings{
		PatientID: "ABC0001",
		Protocol:  "Complete Protocol",
		User: models.Grants{
			Email:  "doctor@clinic.example",
			Submit: &models.SubmitTarget{Schema: "demo", Clinic: "Demo Clinic"},
		},
	}
}

func TestSubmitPublishesEvent(t *testing.T) {
	publisher := &fakePublisher{}
	service := NewService(nil, publisher, "submit")

	requestID, err := service.Submit(context.Background(), submitSettings())
	assert.NoError(t, err)
	assert.NotEmpty(t, requestID)
	assert.Len(t, publisher.Events, 1)

	// The worker reconstructs settings from the event payload alone.
	raw, err := models.SettingsFromEvent(models.Event{Data: publisher.Events[0]})
	assert.NoError(t, err)
	assert.Equal(t, "ABC0001", raw.PatientID)
	assert.Equal(t, requestID, raw.RequestID)
	assert.Equal(t, "demo", raw.User.Submit.Schema)
}

func TestSubmitRequiresGrants(t *testing.T) {
	publisher := &fakePublisher{}
	service := NewService(nil, publisher, "submit")

	settings := submitSettings()
	settings.User.Submit = nil

	_, err := service.Submit(context.Background(), settings)
	assert.ErrorIs(t, err, ErrSubmitNotAllowed)
	assert.Empty(t, publisher.Events)
}

func TestSubmitPublishFailure(t *testing.T) {
	publisher := &fakePublisher{Err: errors.New("broker unreachable")}
	service := NewService(nil, publisher, "submit")

	_, err := service.Submit(context.Background(), submitSettings())
	assert.Error(t, err)
}
