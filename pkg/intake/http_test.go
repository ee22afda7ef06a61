package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"github.com/sparrowhealth/clinic-platform/pkg/preload"
	"github.com/stretchr/testify/assert"
)

type fakeGrantsResolver struct {
	ByEmail map[string]models.Grants
	Err     error
}

func (f *fakeGrantsResolver) Grants(ctx context.Context, email string) (models.Grants, error) {
	if f.Err != nil {
		return models.Grants{}, f.Err
	}
	grants, ok := f.ByEmail[email]
	if !ok {
		return models.Grants{}, preload.ErrGrantsNotFound
	}
	return grants, nil
}

func newSubmitRouter(publisher *fakePublisher) *mux.Router {
	resolver := &fakeGrantsResolver{
		ByEmail: map[string]models.Grants{
			"doctor@clinic.example": {
				Email:  "doctor@clinic.example",
				Submit: &models.SubmitTarget{Schema: "demo", Clinic: "Demo Clinic", Organization: "demo-clinic"},
			},
			"viewer@clinic.example": {
				Email: "viewer@clinic.example",
			},
		},
	}
	router := mux.NewRouter()
	NewHandler(NewService(nil, publisher, "submit"), resolver).Register(router)
	return router
}

func TestSubmitEndpoint(t *testing.T) {
	publisher := &fakePublisher{}
	router := newSubmitRouter(publisher)

	req := httptest.NewRequest(http.MethodPost, "/forms/ABC0001/submit",
		strings.NewReader(`{"protocol":"Complete Protocol"}`))
	req.Header.Set(userHeader, "doctor@clinic.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		RequestID string `json:"requestId"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body.RequestID)

	assert.Len(t, publisher.Events, 1)
	settings, err := models.SettingsFromEvent(models.Event{Data: publisher.Events[0]})
	assert.NoError(t, err)
	assert.Equal(t, "ABC0001", settings.PatientID)
	assert.Equal(t, "Complete Protocol", settings.Protocol)
	assert.Equal(t, "demo-clinic", settings.Organization)
}

func TestSubmitEndpointRejectsUnknownUser(t *testing.T) {
	publisher := &fakePublisher{}
	router := newSubmitRouter(publisher)

	req := httptest.NewRequest(http.MethodPost, "/forms/ABC0001/submit", nil)
	req.Header.Set(userHeader, "stranger@clinic.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, publisher.Events)
}

func TestSubmitEndpointRejectsViewerGrants(t *testing.T) {
	publisher := &fakePublisher{}
	router := newSubmitRouter(publisher)

	req := httptest.NewRequest(http.MethodPost, "/forms/ABC0001/submit", nil)
	req.Header.Set(userHeader, "viewer@clinic.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, publisher.Events)
}

func TestSubmitEndpointGrantsOutageIsServerError(t *testing.T) {
	publisher := &fakePublisher{}
	resolver := &fakeGrantsResolver{Err: errors.New("redis connection refused")}
	router := mux.NewRouter()
	NewHandler(NewService(nil, publisher, "submit"), resolver).Register(router)

	req := httptest.NewRequest(http.MethodPost, "/forms/ABC0001/submit", nil)
	req.Header.Set(userHeader, "doctor@clinic.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// An infrastructure failure is not an authorization verdict.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, publisher.Events)
}

func TestSubmitEndpointRequiresUser(t *testing.T) {
	publisher := &fakePublisher{}
	router := newSubmitRouter(publisher)

	req := httptest.NewRequest(http.MethodPost, "/forms/ABC0001/submit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
