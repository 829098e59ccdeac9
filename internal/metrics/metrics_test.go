package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// Exercise every helper once to catch nil collectors.
	ObservePoll(OutcomeOK, 120*time.Millisecond)
	ObservePoll(OutcomeParseError, 50*time.Millisecond)
	ObserveNotification("became_active", true)
	ObserveNotification("ended", false)
	SetCountdown(300)
	SetFailureStreak(2)
	ObserveExpeditionClick()
	ObserveHTTPRequest("GET", "/", 200, 3*time.Millisecond)
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	ObservePoll(OutcomeOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "bosswatch_polls_total")
}

func TestFailureStreakGaugeCoversFetchFailures(t *testing.T) {
	Init()
	SetFailureStreak(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	// The streak mixes fetch and parse failures, so the gauge must not
	// claim a parse-specific cause.
	require.Contains(t, rec.Body.String(), "bosswatch_consecutive_poll_failures 3")
	require.NotContains(t, rec.Body.String(), "bosswatch_consecutive_parse_failures")
}

func TestCodeClass(t *testing.T) {
	require.Equal(t, "2xx", codeClass(204))
	require.Equal(t, "3xx", codeClass(302))
	require.Equal(t, "4xx", codeClass(404))
	require.Equal(t, "5xx", codeClass(503))
	require.Equal(t, "other", codeClass(42))
}
