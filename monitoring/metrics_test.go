package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlserve/serving"
)

func TestObservePrediction(t *testing.T) {
	m := NewMetrics(nil)
	m.ObservePrediction("iris", http.StatusOK, 3*time.Millisecond)
	m.ObservePrediction("iris", http.StatusOK, time.Millisecond)
	m.ObservePrediction("", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("iris", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("unresolved", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.predictionLatency))
}

func TestRecordLoad(t *testing.T) {
	m := NewMetrics(nil)
	ctx := context.Background()
	require.NoError(t, m.RecordLoad(ctx, serving.LoadEvent{ModelID: "a", Duration: 10 * time.Millisecond}))
	require.NoError(t, m.RecordLoad(ctx, serving.LoadEvent{ModelID: "b", Err: errors.New("missing")}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("failure")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics(func() int { return 3 })
	m.ObservePrediction("iris", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `mlserve_predictions_total{code="200",model="iris"} 1`), body)
	assert.Contains(t, body, "mlserve_models_loaded 3")
	assert.Contains(t, body, "go_goroutines")
}
