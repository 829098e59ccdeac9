package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
	"github.com/adelaroche/bosswatch/internal/metrics"
	"github.com/adelaroche/bosswatch/internal/notify"
	"github.com/adelaroche/bosswatch/internal/scrape"
)

// Fetcher retrieves the raw world boss page.
type Fetcher interface {
	Fetch(ctx context.Context) (scrape.Page, error)
}

// Parser extracts a status from raw markup.
type Parser interface {
	Parse(html []byte, capturedAt time.Time) (*boss.Status, error)
}

// StatsFetcher enriches a record with per-boss combat stats.
type StatsFetcher interface {
	Stats(ctx context.Context, bossID string) boss.Stats
}

// TextSender is the optional side channel for the debug test ping.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// Config controls loop cadence and optional behavior.
type Config struct {
	Interval     time.Duration
	FetchDetails bool
	TestPing     bool
}

// Monitor runs the poll loop: fetch, parse, classify, notify, publish.
// Every iteration is isolated; one bad poll never halts monitoring.
type Monitor struct {
	cfg      Config
	fetcher  Fetcher
	parser   Parser
	details  StatsFetcher
	tracker  *boss.Tracker
	notifier notify.Notifier
	dumper   *scrape.Dumper
	cell     *Cell
	clock    boss.Clock
	logger   *zap.Logger

	staleAfter  int
	lastPingMin int64
}

// New wires a Monitor. details may be nil when stat enrichment is off.
func New(
	cfg Config,
	fetcher Fetcher,
	parser Parser,
	details StatsFetcher,
	tracker *boss.Tracker,
	notifier notify.Notifier,
	dumper *scrape.Dumper,
	cell *Cell,
	clock boss.Clock,
	staleAfter int,
	logger *zap.Logger,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = boss.DefaultTrackerConfig().FailureThreshold
	}
	return &Monitor{
		cfg:         cfg,
		fetcher:     fetcher,
		parser:      parser,
		details:     details,
		tracker:     tracker,
		notifier:    notifier,
		dumper:      dumper,
		cell:        cell,
		clock:       clock,
		logger:      logger,
		staleAfter:  staleAfter,
		lastPingMin: -1,
	}
}

// Run polls immediately, then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitor started", zap.Duration("interval", m.cfg.Interval))
	m.RunOnce(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single isolated poll iteration.
func (m *Monitor) RunOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("poll iteration panicked", zap.Any("panic", rec))
		}
	}()

	start := time.Now()
	outcome := m.poll(ctx)
	metrics.ObservePoll(outcome, time.Since(start))
	metrics.SetFailureStreak(m.tracker.Failures())

	if m.cfg.TestPing {
		m.maybeTestPing(ctx)
	}
}

// poll runs fetch -> parse -> observe -> notify -> publish and returns the
// metrics outcome label. All four error kinds stop here.
func (m *Monitor) poll(ctx context.Context) string {
	now := m.clock.Now()

	page, err := m.fetcher.Fetch(ctx)
	if err != nil {
		return m.handleFetchError(err)
	}

	status, err := m.parser.Parse(page.Body, now)
	if err != nil {
		return m.handleParseError(err, page.Body)
	}

	if m.cfg.FetchDetails && m.details != nil && status.Record.BossID != "" {
		status.Record.Stats = m.details.Stats(ctx, status.Record.BossID)
	}

	transition, due := m.tracker.Observe(boss.Observation{Record: &status.Record})
	if status.Record.Phase.HasCountdown() {
		metrics.SetCountdown(status.Record.SecondsRemaining)
	} else {
		metrics.SetCountdown(0)
	}

	m.cell.Publish(*status, now)
	m.logger.Debug("poll completed",
		zap.String("boss", status.Record.BossName),
		zap.String("phase", string(status.Record.Phase)),
		zap.Int("countdown_s", status.Record.SecondsRemaining),
		zap.String("transition", string(transition)),
		zap.Bool("notify", due),
	)

	if due {
		m.dispatch(ctx, transition, status.Record)
	}
	return metrics.OutcomeOK
}

func (m *Monitor) handleFetchError(err error) string {
	_, _ = m.tracker.Observe(boss.Observation{Failed: true})
	streak := m.tracker.Failures()
	m.cell.MarkFailure(err.Error(), streak, m.staleAfter)

	if errors.Is(err, scrape.ErrSessionExpired) {
		// Needs a new cookie; retrying will not fix it.
		m.logger.Error("session expired, refresh the session cookie", zap.Error(err))
		return metrics.OutcomeSessionExpired
	}
	m.logger.Warn("fetch failed", zap.Error(err), zap.Int("streak", streak))
	return metrics.OutcomeTransportError
}

func (m *Monitor) handleParseError(err error, body []byte) string {
	transition, _ := m.tracker.Observe(boss.Observation{Failed: true})
	streak := m.tracker.Failures()
	m.cell.MarkFailure(err.Error(), streak, m.staleAfter)

	var dumpPath string
	var perr *scrape.ParseError
	if errors.As(err, &perr) && m.dumper != nil {
		dumpPath = m.dumper.Dump(body, perr.Reason)
	}

	fields := []zap.Field{zap.Error(err), zap.Int("streak", streak)}
	if dumpPath != "" {
		fields = append(fields, zap.String("dump_path", dumpPath))
	}
	if transition == boss.TransitionParseFailureOngoing {
		m.logger.Warn("parse failing persistently, page layout may have changed", fields...)
	} else {
		m.logger.Debug("parse failed, will retry next cycle", fields...)
	}
	return metrics.OutcomeParseError
}

// dispatch sends one notification, best-effort. A send failure is logged
// and swallowed; the next transition-worthy event will try again.
func (m *Monitor) dispatch(ctx context.Context, transition boss.Transition, rec boss.StatusRecord) {
	if !m.notifier.Enabled() {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := m.notifier.Send(sendCtx, notify.Event{Transition: transition, Record: rec})
	metrics.ObserveNotification(string(transition), err == nil)
	if err != nil {
		m.logger.Warn("notification failed", zap.String("transition", string(transition)), zap.Error(err))
	}
}

// maybeTestPing sends at most one debug ping per wall-clock minute.
func (m *Monitor) maybeTestPing(ctx context.Context) {
	sender, ok := m.notifier.(TextSender)
	if !ok || !m.notifier.Enabled() {
		return
	}
	now := m.clock.Now()
	minute := now.Unix() / 60
	if minute == m.lastPingMin {
		return
	}
	m.lastPingMin = minute

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sender.SendText(pingCtx, fmt.Sprintf("[TEST] ping %s", now.Format("15:04:05"))); err != nil {
		m.logger.Warn("test ping failed", zap.Error(err))
	}
}
