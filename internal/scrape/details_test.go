package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
)

const detailPage = `<html><body>
<dl>
  <dt>Health</dt><dd>1,250,000</dd>
  <dt>Strength</dt><dd>40 000</dd>
  <dt>Dexterity</dt><dd>35000</dd>
  <dt>Defence</dt><dd>28.500</dd>
</dl>
</body></html>`

func TestParseStatsGrid(t *testing.T) {
	stats, err := parseStats([]byte(detailPage))
	require.NoError(t, err)
	require.Equal(t, boss.Stats{
		HP:        1250000,
		Strength:  40000,
		Dexterity: 35000,
		Defence:   28500,
	}, stats)
}

func TestParseStatsTextFallback(t *testing.T) {
	page := `<html><body><p>Health: 900'000 Strength: 12 345</p></body></html>`
	stats, err := parseStats([]byte(page))
	require.NoError(t, err)
	require.Equal(t, 900000, stats.HP)
	require.Equal(t, 12345, stats.Strength)
}

func TestParseStatsNoSignals(t *testing.T) {
	stats, err := parseStats([]byte("<html><body>nothing useful</body></html>"))
	require.NoError(t, err)
	require.Equal(t, boss.Stats{}, stats)
}

func TestDetailFetcherStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/worldboss/view/482", r.URL.Path)
		w.Write([]byte(detailPage))
	}))
	defer srv.Close()

	f, err := NewFetcher(FetcherConfig{URL: srv.URL, RequestTimeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	d := NewDetailFetcher(f, srv.URL+"/worldboss/view/%s", zap.NewNop())

	stats := d.Stats(context.Background(), "482")
	require.Equal(t, 1250000, stats.HP)
}

func TestDetailFetcherBestEffort(t *testing.T) {
	f, err := NewFetcher(FetcherConfig{URL: "http://127.0.0.1:1", RequestTimeout: 500 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	d := NewDetailFetcher(f, "http://127.0.0.1:1/worldboss/view/%s", zap.NewNop())

	require.Equal(t, boss.Stats{}, d.Stats(context.Background(), "482"))
	require.Equal(t, boss.Stats{}, d.Stats(context.Background(), ""))
}
