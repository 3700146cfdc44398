package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := New()
	c.Record(http.MethodPost, "/api/v1/assessments", http.StatusOK, 20*time.Millisecond)
	c.Record(http.MethodPost, "/api/v1/assessments", http.StatusOK, 30*time.Millisecond)
	c.Record(http.MethodGet, "", http.StatusTooManyRequests, time.Millisecond)
	c.SubmissionOutcome("committed")
	c.SubmissionOutcome("forbidden")
	c.SubmissionOutcome("committed")
	c.ConflictRetry()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues(http.MethodPost, "/api/v1/assessments", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues(http.MethodGet, "unmatched", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissions.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conflictRetries))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.SubmissionOutcome("committed")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `perfreview_assessment_submissions_total{outcome="committed"} 1`)
}
