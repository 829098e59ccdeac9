package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
	"github.com/adelaroche/bosswatch/internal/expedition"
	"github.com/adelaroche/bosswatch/internal/metrics"
	"github.com/adelaroche/bosswatch/internal/monitor"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeExpeditioner struct {
	running bool
	status  expedition.Status
}

func (f *fakeExpeditioner) Start(context.Context) bool {
	if f.running {
		return false
	}
	f.running = true
	f.status.Active = true
	return true
}

func (f *fakeExpeditioner) Stop() bool {
	if !f.running {
		return false
	}
	f.running = false
	f.status.Active = false
	return true
}

func (f *fakeExpeditioner) Status() expedition.Status { return f.status }

func newTestServer(cell *monitor.Cell, exped Expeditioner) *Server {
	clk := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewServer(cell, exped, clk, context.Background(), zap.NewNop())
}

func publishedCell() *monitor.Cell {
	cell := monitor.NewCell()
	cell.Publish(boss.Status{
		Record: boss.StatusRecord{
			BossName:         "Chaos Wyrm",
			Level:            "Level 120",
			Phase:            boss.PhaseCooldown,
			SecondsRemaining: 8043,
			SpawnAt:          time.Date(2026, 3, 1, 14, 14, 3, 0, time.UTC),
		},
		Others: []boss.BossEntry{
			{BossName: "Frost Giant", Level: "Level 95", SecondsRemaining: 18060},
			{BossName: "Void Maw", Level: "Level 140", ETALabel: "Active"},
		},
	}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return cell
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(monitor.NewCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzWaitsForFirstPoll(t *testing.T) {
	cell := monitor.NewCell()
	srv := newTestServer(cell, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	cell.Publish(boss.Status{Record: boss.StatusRecord{Phase: boss.PhaseCooldown, SecondsRemaining: 10}}, time.Now())
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(publishedCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Boss)
	require.Equal(t, "Chaos Wyrm", resp.Boss.BossName)
	require.Equal(t, boss.PhaseCooldown, resp.Boss.Phase)
	require.Equal(t, 8043, resp.Boss.SecondsRemaining)
	require.Len(t, resp.Others, 2)
	require.False(t, resp.Stale)
}

func TestGetStatusNoData(t *testing.T) {
	srv := newTestServer(monitor.NewCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Boss)
}

func TestGetStatusStale(t *testing.T) {
	cell := publishedCell()
	cell.MarkFailure("fetch failed: HTTP 503", 3, 3)
	srv := newTestServer(cell, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Stale)
	require.Equal(t, 3, resp.FailureStreak)
	require.Contains(t, resp.LastError, "503")
	// Last good reading still served.
	require.NotNil(t, resp.Boss)
	require.Equal(t, "Chaos Wyrm", resp.Boss.BossName)
}

func TestDashboardRendersHeadline(t *testing.T) {
	srv := newTestServer(publishedCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Chaos Wyrm")
	require.Contains(t, body, "2h 14m 03s")
	require.Contains(t, body, "Frost Giant")
	require.Contains(t, body, "Active")
	require.NotContains(t, body, "Data is stale")
}

func TestDashboardStaleBanner(t *testing.T) {
	cell := publishedCell()
	cell.MarkFailure("parse failed: anchor_not_found", 4, 3)
	srv := newTestServer(cell, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	require.Contains(t, body, "Data is stale")
	require.Contains(t, body, "anchor_not_found")
	require.Contains(t, body, "Chaos Wyrm")
}

func TestDashboardNoData(t *testing.T) {
	srv := newTestServer(monitor.NewCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No reading yet")
}

func TestExpeditionLifecycle(t *testing.T) {
	exped := &fakeExpeditioner{}
	srv := newTestServer(monitor.NewCell(), exped)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expedition/start", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expedition/start", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expedition/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st expedition.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.True(t, st.Active)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expedition/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expedition/stop", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExpeditionDisabled(t *testing.T) {
	srv := newTestServer(monitor.NewCell(), nil)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/expedition/start", nil),
		httptest.NewRequest(http.MethodPost, "/expedition/stop", nil),
		httptest.NewRequest(http.MethodGet, "/expedition/status", nil),
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(monitor.NewCell(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bosswatch_")
}
