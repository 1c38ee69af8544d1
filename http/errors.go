package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"mlserve/ml"
	"mlserve/serving"
)

const (
	msgUnexpected = "Unexpected error occurred"
	msgMalformed  = "Malformed request body"
)

type errorBody struct {
	Message string `json:"message"`
}

// statusFor maps a prediction error to the status and message sent to the
// client. Internal causes never leave the process.
func statusFor(modelID string, err error) (int, string) {
	var featureErr *ml.FeatureError
	var loadErr *serving.ModelLoadFailure
	switch {
	case errors.As(err, &featureErr):
		return http.StatusBadRequest, featureErr.Error()
	case errors.As(err, &loadErr):
		if loadErr.StorageUnavailable() {
			return http.StatusServiceUnavailable, fmt.Sprintf("Storage unavailable for model: %s", modelID)
		}
		return http.StatusNotFound, fmt.Sprintf("Model not found: %s", modelID)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request canceled"
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func (a *API) respondPredictError(w http.ResponseWriter, r *http.Request, modelID string, err error) int {
	status, message := statusFor(modelID, err)
	level := zap.DebugLevel
	if status >= http.StatusInternalServerError {
		level = zap.WarnLevel
	}
	if ce := a.logger.Check(level, "prediction failed"); ce != nil {
		ce.Write(
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("model_id", modelID),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	respondError(w, status, message)
	return status
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondStatus(w, status, errorBody{Message: message})
}

func respondJSON(w http.ResponseWriter, data any) {
	respondStatus(w, http.StatusOK, data)
}

func respondStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the client may be gone; nothing useful to do with the error
	_ = json.NewEncoder(w).Encode(data)
}
