package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveQuote("increase", OutcomeOK)
	m.ObserveQuote("increase", OutcomeOK)
	m.ObserveQuote("decrease", OutcomeInvalid)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("increase", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("decrease", OutcomeInvalid)))

	m.ObserveSubmit("close", OutcomeSimulation, time.Now())
	m.ObserveProgramError("close", "ClosePositionNotEmpty")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("close", OutcomeSimulation)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProgramErrors.WithLabelValues("close", "ClosePositionNotEmpty")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastConfirmed))

	m.ObserveSubmit("close", OutcomeOK, time.Now())
	assert.Greater(t, testutil.ToFloat64(m.LastConfirmed), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.SubmitDuration))
}

func TestHandler(t *testing.T) {
	m := New("", nil)
	m.ObservePlan("close", 5)
	m.ObserveFetch("position", time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lpmanager_plan_steps_bucket")
	assert.Contains(t, string(body), "lpmanager_rpc_fetch_duration_seconds")
}
