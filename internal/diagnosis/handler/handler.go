package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
)

const maxBodyBytes = 1 << 20

type DiagnosisService interface {
	Predict(ctx context.Context, req diagnosis.PredictRequest) (*diagnosis.PredictResponse, error)
	History(ctx context.Context, userID int64) ([]diagnosis.AssessmentRecord, error)
	Delete(ctx context.Context, predictID int64) error
	Preview(ctx context.Context, symptoms []string, duration, severity string) (*service.Preview, error)
	Catalog() service.Catalog
}

// PreviewRequest is the body of the debug ranking endpoint.
type PreviewRequest struct {
	Symptoms []string `json:"symptoms"`
	Duration string   `json:"duration"`
	Severity string   `json:"severity"`
}

type HistoryResponse struct {
	UserID      int64                        `json:"user_id"`
	Count       int                          `json:"count"`
	Predictions []diagnosis.AssessmentRecord `json:"predictions"`
}

type Handler struct {
	svc    DiagnosisService
	logger *slog.Logger
}

func New(svc DiagnosisService) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "diagnosis-handler"),
	}
}

// Register mounts the diagnosis routes on mux. guard, when set, wraps the
// ranking endpoints.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("POST /api/v1/predict", guard(http.HandlerFunc(h.Predict)))
	mux.Handle("POST /api/v1/predict/test-symptoms", guard(http.HandlerFunc(h.Preview)))
	mux.HandleFunc("GET /api/v1/predictions/user/{user_id}", h.History)
	mux.HandleFunc("DELETE /api/v1/predictions/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/symptoms", h.Symptoms)
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req diagnosis.PredictRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	preview, err := h.svc.Preview(r.Context(), req.Symptoms, req.Duration, req.Severity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}
	records, err := h.svc.History(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, Count: len(records), Predictions: records})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	predictID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "prediction id must be an integer")
		return
	}
	if err := h.svc.Delete(r.Context(), predictID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "predict_id": predictID})
}

func (h *Handler) Symptoms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Catalog())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError hides internal causes from the caller; only AppError
// messages are passed through.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	h.writeError(w, status, http.StatusText(status))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
