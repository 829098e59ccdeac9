package api

import (
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
	"github.com/adelaroche/bosswatch/internal/monitor"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"eta": boss.FormatETA,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="15">
<title>bosswatch</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 48rem; color: #1f2937; }
.card { border: 1px solid #d1d5db; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1rem; }
.banner { background: #fef2f2; border: 1px solid #fca5a5; color: #991b1b; padding: .75rem 1rem; border-radius: 8px; margin-bottom: 1rem; }
.phase-active { color: #b91c1c; font-weight: 600; }
.phase-approaching { color: #b45309; font-weight: 600; }
.phase-cooldown { color: #1d4ed8; }
.phase-unknown, .phase-ended { color: #6b7280; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: .25rem .75rem .25rem 0; border-bottom: 1px solid #e5e7eb; }
.muted { color: #6b7280; font-size: .875rem; }
.stats span { margin-right: 1rem; }
</style>
</head>
<body>
<h1>World Boss Watch</h1>
{{- if .Snap.Stale}}
<div class="banner">Data is stale: {{.Snap.FailureStreak}} consecutive failures. Last error: {{.Snap.LastError}}</div>
{{- end}}
{{- if .Snap.HasData}}
{{- with .Snap.Status.Record}}
<div class="card">
  <h2>{{with .IconURL}}<img src="{{.}}" alt="" width="32" height="32" style="vertical-align:middle"> {{end}}{{.BossName}} <span class="muted">{{.Level}}</span></h2>
  <p class="phase-{{.Phase}}">
    {{- if eq .Phase "active"}}ACTIVE NOW
    {{- else if .Phase.HasCountdown}}{{.Phase}} &mdash; spawns in {{eta .SecondsRemaining}}{{if not .SpawnAt.IsZero}} (at {{.SpawnAt.Format "15:04:05 MST"}}){{end}}
    {{- else}}{{.Phase}}
    {{- end}}
  </p>
  {{- if .Stats.HP}}
  <p class="stats muted">
    <span>HP {{.Stats.HP}}</span><span>STR {{.Stats.Strength}}</span><span>DEX {{.Stats.Dexterity}}</span><span>DEF {{.Stats.Defence}}</span>
  </p>
  {{- end}}
</div>
{{- end}}
{{- if .Snap.Status.Others}}
<div class="card">
  <h3>Other bosses</h3>
  <table>
    <tr><th>Boss</th><th>Status</th></tr>
    {{- range .Snap.Status.Others}}
    <tr>
      <td>{{with .IconURL}}<img src="{{.}}" alt="" width="20" height="20" style="vertical-align:middle"> {{end}}{{.BossName}} <span class="muted">{{.Level}}</span></td>
      <td>{{if .SecondsRemaining}}{{eta .SecondsRemaining}}{{else}}{{.ETALabel}}{{end}}</td>
    </tr>
    {{- end}}
  </table>
</div>
{{- end}}
<p class="muted">Last updated {{.Snap.UpdatedAt.Format "15:04:05 MST"}} &middot; rendered {{.Now.Format "15:04:05 MST"}}</p>
{{- else}}
<div class="card"><p>No reading yet. The first poll has not completed.</p></div>
{{- end}}
{{- if .Expedition}}
<p class="muted">Expedition loop: {{if .Expedition.Active}}running{{else}}stopped{{end}}{{if not .Expedition.LastClick.IsZero}}, last click {{.Expedition.LastClick.Format "15:04:05 MST"}}{{end}}{{with .Expedition.LastError}}, last error: {{.}}{{end}}</p>
{{- end}}
</body>
</html>
`))

type dashboardData struct {
	Snap       monitor.Snapshot
	Expedition *dashboardExpedition
	Now        time.Time
}

type dashboardExpedition struct {
	Active    bool
	LastClick time.Time
	LastError string
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	data := dashboardData{
		Snap: s.cell.Load(),
		Now:  s.clock.Now().UTC(),
	}
	if s.exped != nil {
		st := s.exped.Status()
		data.Expedition = &dashboardExpedition{
			Active:    st.Active,
			LastClick: st.LastClick,
			LastError: st.LastError,
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("dashboard render failed", zap.Error(err))
	}
}
