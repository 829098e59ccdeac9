// Package notify formats transition messages and delivers them to the
// operator's messaging channel.
package notify

import (
	"context"
	"fmt"

	"github.com/adelaroche/bosswatch/internal/boss"
)

// Event is one notification-worthy observation handed to a Notifier.
type Event struct {
	Transition boss.Transition
	Record     boss.StatusRecord
}

// Notifier delivers an event to a channel. Implementations must be safe
// to call from the poll loop and must not block beyond their own timeout.
type Notifier interface {
	Send(ctx context.Context, evt Event) error
	Enabled() bool
}

// Nop drops everything; used in tests and when credentials are absent.
type Nop struct{}

// Send discards the event.
func (Nop) Send(context.Context, Event) error { return nil }

// Enabled reports false so callers can skip formatting work.
func (Nop) Enabled() bool { return false }

// FormatMessage renders the human-readable alert line for an event.
func FormatMessage(evt Event) string {
	rec := evt.Record
	name := rec.BossName
	if name == "" {
		name = "?"
	}
	switch evt.Transition {
	case boss.TransitionBecameActive:
		return fmt.Sprintf("⚔️ %s (%s) is ACTIVE — go fight it!", name, levelOr(rec.Level))
	case boss.TransitionEnteredApproaching:
		return fmt.Sprintf("⏳ %s (%s) spawns in %s", name, levelOr(rec.Level), boss.FormatETA(rec.SecondsRemaining))
	case boss.TransitionEnded:
		return fmt.Sprintf("💀 %s is over.", name)
	default:
		return fmt.Sprintf("ℹ️ %s: %s", name, evt.Transition)
	}
}

func levelOr(level string) string {
	if level == "" {
		return "level ?"
	}
	return level
}
