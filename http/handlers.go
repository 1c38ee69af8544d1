package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mlserve/db"
	"mlserve/ml"
	"mlserve/monitoring"
	"mlserve/serving"
)

// LoadHistory serves the load journal. *db.Journal implements it.
type LoadHistory interface {
	History(ctx context.Context, modelID string, limit int) ([]db.LoadRecord, error)
}

// API holds the handler dependencies.
type API struct {
	service *serving.PredictionService
	history LoadHistory
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

type APIOption func(*API)

// WithLoadHistory enables GET /api/models/{modelId}/loads.
func WithLoadHistory(history LoadHistory) APIOption {
	return func(a *API) { a.history = history }
}

// WithMetrics counts predictions and serves GET /metrics.
func WithMetrics(metrics *monitoring.Metrics) APIOption {
	return func(a *API) { a.metrics = metrics }
}

func NewAPI(service *serving.PredictionService, logger *zap.Logger, opts ...APIOption) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{service: service, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict/{modelId}", a.handlePredict)
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/models", a.handleModels)
	mux.HandleFunc("GET /api/models/{modelId}/loads", a.handleLoads)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
}

type predictRequest struct {
	Features map[string]any `json:"features"`
}

type predictResponse struct {
	Prediction any `json:"prediction"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	modelID := r.PathValue("modelId")

	status, resolved := a.predict(w, r, modelID)
	if a.metrics != nil {
		label := ""
		if resolved {
			label = modelID
		}
		a.metrics.ObservePrediction(label, status, time.Since(start))
	}
}

// predict writes the response and reports its status, and whether the model
// was loaded by the time it answered.
func (a *API) predict(w http.ResponseWriter, r *http.Request, modelID string) (int, bool) {
	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
		respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported media type: %s", contentType))
		return http.StatusUnsupportedMediaType, false
	}

	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return http.StatusRequestEntityTooLarge, false
		}
		respondError(w, http.StatusBadRequest, msgMalformed)
		return http.StatusBadRequest, false
	}

	prediction, err := a.service.Predict(r.Context(), modelID, req.Features)
	if err != nil {
		status := a.respondPredictError(w, r, modelID, err)
		var featureErr *ml.FeatureError
		return status, errors.As(err, &featureErr)
	}

	respondJSON(w, predictResponse{Prediction: prediction})
	return http.StatusOK, true
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"models": a.service.Models(),
		"stats":  a.service.Stats(),
	})
}

func (a *API) handleLoads(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		respondError(w, http.StatusNotFound, "Load journal is disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	modelID := r.PathValue("modelId")
	records, err := a.history.History(r.Context(), modelID, limit)
	if err != nil {
		a.logger.Error("load history query failed", zap.String("model_id", modelID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	respondJSON(w, map[string]any{"model_id": modelID, "loads": records})
}
