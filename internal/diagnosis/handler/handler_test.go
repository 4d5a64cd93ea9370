package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
)

type fakeService struct {
	lastPredict diagnosis.PredictRequest
	predictErr  error
	historyErr  error
	deleteErr   error
	previewErr  error
	deleted     int64
}

func (f *fakeService) Predict(_ context.Context, req diagnosis.PredictRequest) (*diagnosis.PredictResponse, error) {
	f.lastPredict = req
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	id := int64(11)
	return &diagnosis.PredictResponse{
		RecordID: &id,
		Ranked: []diagnosis.Candidate{
			{Disease: "Common Cold", Score: 80},
			{Disease: "Allergic Rhinitis", Score: 70},
			{Disease: "Throat Irritation", Score: 60},
		},
		SummaryText: "Primary symptoms: cough",
	}, nil
}

func (f *fakeService) History(_ context.Context, userID int64) ([]diagnosis.AssessmentRecord, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []diagnosis.AssessmentRecord{{ID: 3, UserID: userID}, {ID: 1, UserID: userID}}, nil
}

func (f *fakeService) Delete(_ context.Context, predictID int64) error {
	f.deleted = predictID
	return f.deleteErr
}

func (f *fakeService) Preview(_ context.Context, symptoms []string, _, _ string) (*service.Preview, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return &service.Preview{Symptoms: symptoms, Source: "heuristic"}, nil
}

func (f *fakeService) Catalog() service.Catalog {
	return service.Catalog{Symptoms: []string{"cough"}, Categories: schema.DisplayCategories}
}

func serve(t *testing.T, svc DiagnosisService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	New(svc).Register(mux, nil)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPredict(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/api/v1/predict",
		`{"symptoms":["cough"],"duration":"1-3 days","severity":"Mild","user_id":5,"journey_metadata":{"age":"30"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, int64(5), svc.lastPredict.UserID)
	assert.Equal(t, "30", svc.lastPredict.JourneyMetadata["age"])

	body := decodeBody(t, rec)
	assert.Equal(t, float64(11), body["record_id"])
	ranked := body["ranked"].([]any)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Common Cold", ranked[0].(map[string]any)["disease"])
	assert.Equal(t, float64(80), ranked[0].(map[string]any)["probability"])
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"malformed json", `{"symptoms":`, nil, http.StatusBadRequest, ""},
		{"string user id", `{"user_id":"abc"}`, nil, http.StatusBadRequest, ""},
		{"invalid user", `{"user_id":9}`, apperrors.New(apperrors.ErrInvalidUser, http.StatusBadRequest, "user 9 does not exist"), http.StatusBadRequest, "user 9 does not exist"},
		{"unexpected", `{"user_id":9}`, errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeService{predictErr: tt.err}, http.MethodPost, "/api/v1/predict", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeBody(t, rec)["error"])
			}
		})
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	body := `{"symptoms":["` + strings.Repeat("a", maxBodyBytes) + `"]}`
	rec := serve(t, &fakeService{}, http.MethodPost, "/api/v1/predict", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHistory(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/api/v1/predictions/user/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["predictions"], 2)

	rec = serve(t, &fakeService{}, http.MethodGet, "/api/v1/predictions/user/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	notFound := apperrors.Newf(apperrors.ErrUserNotFound, http.StatusNotFound, "user %d not found", 5)
	rec = serve(t, &fakeService{historyErr: notFound}, http.MethodGet, "/api/v1/predictions/user/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeService{historyErr: apperrors.ErrPersistence}, http.MethodGet, "/api/v1/predictions/user/5", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDelete(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodDelete, "/api/v1/predictions/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.deleted)

	rec = serve(t, &fakeService{deleteErr: apperrors.ErrPredictionNotFound}, http.MethodDelete, "/api/v1/predictions/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, svc, http.MethodGet, "/api/v1/predictions/7", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPreview(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/api/v1/predict/test-symptoms", `{"symptoms":["cough"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "heuristic", decodeBody(t, rec)["source"])

	empty := apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "no symptoms provided")
	rec = serve(t, &fakeService{previewErr: empty}, http.MethodPost, "/api/v1/predict/test-symptoms", `{"symptoms":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no symptoms provided", decodeBody(t, rec)["error"])
}

func TestSymptoms(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/api/v1/symptoms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"cough"}, body["symptoms"])
	assert.Len(t, body["categories"], len(schema.DisplayCategories))
}
