// Package boss defines the world boss domain model and the transition
// classifier that decides when a notification is due.
package boss

import (
	"fmt"
	"time"
)

// Phase is the lifecycle stage of the headline world boss.
type Phase string

// Phases the tracker understands.
const (
	PhaseUnknown     Phase = "unknown"
	PhaseCooldown    Phase = "cooldown"
	PhaseApproaching Phase = "approaching"
	PhaseActive      Phase = "active"
	PhaseEnded       Phase = "ended"
)

// HasCountdown reports whether a countdown is meaningful for the phase.
func (p Phase) HasCountdown() bool {
	return p == PhaseCooldown || p == PhaseApproaching
}

// Stats carries the optional combat stats scraped from the boss view page.
type Stats struct {
	HP        int `json:"hp,omitempty"`
	Strength  int `json:"strength,omitempty"`
	Dexterity int `json:"dexterity,omitempty"`
	Defence   int `json:"defence,omitempty"`
}

// StatusRecord is one poll's reading of the headline boss. It is replaced
// wholesale every cycle; no history is retained beyond "previous".
type StatusRecord struct {
	BossName string `json:"boss_name,omitempty"`
	Level    string `json:"level,omitempty"`
	BossID   string `json:"boss_id,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`

	Phase Phase `json:"phase"`
	// SecondsRemaining is meaningful only when Phase.HasCountdown().
	SecondsRemaining int `json:"seconds_remaining,omitempty"`
	// SpawnAt is the wall-clock time the countdown points at.
	SpawnAt time.Time `json:"spawn_at,omitzero"`

	Stats      Stats     `json:"stats,omitzero"`
	CapturedAt time.Time `json:"captured_at"`
}

// BossEntry is a roster row for a non-headline boss shown on the dashboard.
type BossEntry struct {
	BossName         string    `json:"boss_name"`
	Level            string    `json:"level,omitempty"`
	BossID           string    `json:"boss_id,omitempty"`
	IconURL          string    `json:"icon_url,omitempty"`
	ETALabel         string    `json:"eta_label,omitempty"`
	SecondsRemaining int       `json:"seconds_remaining,omitempty"`
	SpawnAt          time.Time `json:"spawn_at,omitzero"`
	Stats            Stats     `json:"stats,omitzero"`
}

// Status is the full parse result for one poll: the headline boss plus
// the roster of upcoming bosses.
type Status struct {
	Record StatusRecord `json:"record"`
	Others []BossEntry  `json:"others,omitempty"`
}

// Validate enforces the countdown/phase invariant.
func (r StatusRecord) Validate() error {
	switch r.Phase {
	case PhaseUnknown, PhaseCooldown, PhaseApproaching, PhaseActive, PhaseEnded:
	default:
		return fmt.Errorf("unknown phase %q", r.Phase)
	}
	if !r.Phase.HasCountdown() && r.SecondsRemaining != 0 {
		return fmt.Errorf("phase %s must not carry a countdown", r.Phase)
	}
	return nil
}

// Transition classifies the change between two consecutive readings.
type Transition string

// Transitions produced by the tracker.
const (
	TransitionUnchanged             Transition = "unchanged"
	TransitionEnteredApproaching    Transition = "entered_approaching"
	TransitionBecameActive          Transition = "became_active"
	TransitionEnded                 Transition = "ended"
	TransitionParseFailureOngoing   Transition = "parse_failure_ongoing"
	TransitionParseFailureRecovered Transition = "parse_failure_recovered"
)

// AlertState records what was last notified so repeated polls of the same
// logical state stay silent. It is owned by the tracker and only mutated
// after a dispatch decision.
type AlertState struct {
	LastNotifiedPhase Phase
	LastNotifiedAt    time.Time
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Classify maps a widget reading to a Phase. active wins over any countdown;
// otherwise the approach threshold splits cooldown from approaching.
func Classify(secondsRemaining int, active bool, approachThreshold time.Duration) Phase {
	if active {
		return PhaseActive
	}
	if secondsRemaining < 0 {
		return PhaseUnknown
	}
	if time.Duration(secondsRemaining)*time.Second <= approachThreshold {
		return PhaseApproaching
	}
	return PhaseCooldown
}
