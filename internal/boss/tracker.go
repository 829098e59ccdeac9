package boss

import "time"

// TrackerConfig carries the policy constants for the transition classifier.
type TrackerConfig struct {
	// FailureThreshold is how many consecutive parse failures are needed
	// before the tracker reports ParseFailureOngoing. Below it, failures
	// are silently retried next cycle.
	FailureThreshold int
	// ActiveCooldown suppresses a repeated BecameActive notification when
	// the previous one was sent within this window.
	ActiveCooldown time.Duration
}

// DefaultTrackerConfig returns the policy defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		FailureThreshold: 3,
		ActiveCooldown:   10 * time.Minute,
	}
}

// Observation is one poll outcome fed to the tracker: either a record or
// a parse failure, never both.
type Observation struct {
	Record *StatusRecord
	Failed bool
}

// Tracker holds the last-known reading and the notification dedupe state.
// It performs no I/O; the poll loop owns it and is its only caller.
type Tracker struct {
	cfg   TrackerConfig
	clock Clock

	prev     *StatusRecord
	failures int
	alert    AlertState
}

// NewTracker builds a Tracker. A zero FailureThreshold falls back to the
// default so a misconfigured tracker cannot flap on a single bad poll.
func NewTracker(cfg TrackerConfig, clock Clock) *Tracker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultTrackerConfig().FailureThreshold
	}
	return &Tracker{cfg: cfg, clock: clock}
}

// Previous returns the last healthy record, or nil before the first one.
func (t *Tracker) Previous() *StatusRecord {
	return t.prev
}

// Failures returns the current consecutive parse-failure streak.
func (t *Tracker) Failures() int {
	return t.failures
}

// Observe classifies the transition from the previous reading to obs and
// decides whether a notification is due. Decisions depend on phase
// transitions only; wall-clock time is consulted solely for the Active
// re-notify cooldown and recorded in AlertState.
func (t *Tracker) Observe(obs Observation) (Transition, bool) {
	now := t.clock.Now()
	d := decide(t.prev, obs, t.failures, t.cfg, t.alert, now)

	t.failures = d.failures
	t.alert = d.alert
	if obs.Record != nil {
		rec := *obs.Record
		t.prev = &rec
	}
	return d.transition, d.notify
}

// decision is the full outcome of one classification step.
type decision struct {
	transition Transition
	notify     bool
	failures   int
	alert      AlertState
}

// decide is the pure classifier. It takes the previous record, the new
// observation, the failure streak and the alert state, and returns the
// transition plus the updated state. Kept free of Tracker so it can be
// exercised exhaustively in tests.
func decide(prev *StatusRecord, obs Observation, failures int, cfg TrackerConfig, alert AlertState, now time.Time) decision {
	if obs.Failed {
		failures++
		tr := TransitionUnchanged
		if failures >= cfg.FailureThreshold {
			tr = TransitionParseFailureOngoing
		}
		return decision{transition: tr, failures: failures, alert: alert}
	}

	recovered := failures >= cfg.FailureThreshold
	failures = 0

	curr := obs.Record
	prevPhase := PhaseUnknown
	if prev != nil {
		prevPhase = prev.Phase
	}

	switch {
	case prevPhase != PhaseActive && curr.Phase == PhaseActive:
		notify := true
		if alert.LastNotifiedPhase == PhaseActive && now.Sub(alert.LastNotifiedAt) < cfg.ActiveCooldown {
			notify = false
		}
		if notify {
			alert = AlertState{LastNotifiedPhase: PhaseActive, LastNotifiedAt: now}
		}
		return decision{transition: TransitionBecameActive, notify: notify, alert: alert}

	case (prevPhase == PhaseUnknown || prevPhase == PhaseCooldown) && curr.Phase == PhaseApproaching:
		notify := alert.LastNotifiedPhase != PhaseApproaching
		if notify {
			alert = AlertState{LastNotifiedPhase: PhaseApproaching, LastNotifiedAt: now}
		}
		return decision{transition: TransitionEnteredApproaching, notify: notify, alert: alert}

	case prevPhase == PhaseActive && (curr.Phase == PhaseUnknown || curr.Phase == PhaseEnded):
		notify := alert.LastNotifiedPhase != PhaseEnded
		if notify {
			alert = AlertState{LastNotifiedPhase: PhaseEnded, LastNotifiedAt: now}
		}
		return decision{transition: TransitionEnded, notify: notify, alert: alert}
	}

	// Leaving the approach/active window re-arms the corresponding alert
	// so the next genuine transition notifies again.
	if !curr.Phase.HasCountdown() || curr.Phase == PhaseCooldown {
		if alert.LastNotifiedPhase == PhaseApproaching && curr.Phase != PhaseApproaching {
			alert.LastNotifiedPhase = PhaseUnknown
		}
	}
	if alert.LastNotifiedPhase == PhaseEnded && curr.Phase != PhaseEnded && curr.Phase != PhaseUnknown {
		alert.LastNotifiedPhase = PhaseUnknown
	}

	if recovered {
		return decision{transition: TransitionParseFailureRecovered, alert: alert}
	}
	return decision{transition: TransitionUnchanged, alert: alert}
}
