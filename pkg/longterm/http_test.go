package longterm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManagementRouter(t *testing.T) (*mux.Router, *Repository) {
	t.Helper()
	repo := newTestRepository(t)
	router := mux.NewRouter()
	NewHandler(repo, "demo").Register(router)
	return router, repo
}

func TestStateChartEndpoint(t *testing.T) {
	router, repo := newManagementRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertExamination(ctx, testExamination("ABC0001")))
	require.NoError(t, repo.UpsertExamination(ctx, testExamination("ABC0002")))
	rejected := testExamination("ABC0003")
	rejected.State = StateRejected
	require.NoError(t, repo.UpsertExamination(ctx, rejected))

	req := httptest.NewRequest(http.MethodGet, "/management/state-chart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Schema string       `json:"schema"`
		Values []StateCount `json:"values"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "demo", body.Schema)
	assert.Equal(t, []StateCount{
		{Label: StateInReview, Value: 2},
		{Label: StateRejected, Value: 1},
	}, body.Values)
}

func TestListExaminationsEndpointFiltersByState(t *testing.T) {
	router, repo := newManagementRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertExamination(ctx, testExamination("ABC0001")))
	rejected := testExamination("ABC0002")
	rejected.State = StateRejected
	require.NoError(t, repo.UpsertExamination(ctx, rejected))

	req := httptest.NewRequest(http.MethodGet, "/management/examinations?state=inReview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []Examination `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "exam-ABC0001", body.Items[0].ID)
}

func TestRejectEndpointStampsReviewer(t *testing.T) {
	router, repo := newManagementRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertExamination(ctx, testExamination("ABC0001")))
	require.NoError(t, repo.UpsertExamination(ctx, testExamination("ABC0002")))

	req := httptest.NewRequest(http.MethodPost, "/management/reject",
		strings.NewReader(`{"selection":["exam-ABC0001"]}`))
	req.Header.Set(reviewerHeader, "reviewer@clinic.test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Updated int64 `json:"updated"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Updated)

	exam, err := repo.FindExamination(ctx, "demo", "ABC0001")
	require.NoError(t, err)
	assert.Equal(t, StateRejected, exam.State)
	assert.Equal(t, "reviewer@clinic.test", exam.UpdatedBy)

	untouched, err := repo.FindExamination(ctx, "demo", "ABC0002")
	require.NoError(t, err)
	assert.Equal(t, StateInReview, untouched.State)
}

func TestAcceptEndpointRequiresReviewer(t *testing.T) {
	router, _ := newManagementRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/management/accept",
		strings.NewReader(`{"selection":["exam-ABC0001"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptEndpointRequiresSelection(t *testing.T) {
	router, _ := newManagementRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/management/accept",
		strings.NewReader(`{"selection":[]}`))
	req.Header.Set(reviewerHeader, "reviewer@clinic.test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
