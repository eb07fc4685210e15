package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIdempotent(t *testing.T) {
	Init(nil)
	Init(nil)
	require.NotNil(t, AnalysesTotal)
	assert.True(t, Enabled())
}

func TestObserveHelpersWhenDisabled(t *testing.T) {
	Init(nil)
	SetEnabled(false)
	defer SetEnabled(true)

	// Must be no-ops, not panics.
	ObserveAnalysis("ok", "standard", time.Millisecond)
	ObserveStage("timeline", time.Millisecond)
	ObserveQuality("good")
	ObserveTimeline("person", 42)
	ObserveScore(7.5)
	ObservePublish("q", nil)

	assert.False(t, Enabled())
}

func TestObservePublishOutcomes(t *testing.T) {
	Init(nil)
	SetEnabled(true)

	ObservePublish("results", nil)
	ObservePublish("results", errors.New("broker down"))
}

func TestHandlerServesRegistry(t *testing.T) {
	Init(nil)
	SetEnabled(true)
	ObserveAnalysis("ok", "standard", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "interaction_analyses_total")
}
