// Package monitor drives the fixed-interval poll loop and publishes its
// readings for the HTTP layer.
package monitor

import (
	"sync"
	"time"

	"github.com/adelaroche/bosswatch/internal/boss"
)

// Snapshot is the loop's latest published view. Readers always get a
// whole, consistent value; a failing poll keeps the last good status and
// raises the staleness flag instead of erasing it.
type Snapshot struct {
	Status        boss.Status `json:"status"`
	HasData       bool        `json:"has_data"`
	UpdatedAt     time.Time   `json:"updated_at,omitzero"`
	Stale         bool        `json:"stale"`
	FailureStreak int         `json:"failure_streak,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
}

// Cell is the shared snapshot holder: one writer (the loop), any number
// of readers (dashboard requests). Values are replaced wholesale.
type Cell struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewCell returns an empty Cell.
func NewCell() *Cell {
	return &Cell{}
}

// Publish replaces the snapshot with a fresh healthy reading.
func (c *Cell) Publish(status boss.Status, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{
		Status:    status,
		HasData:   true,
		UpdatedAt: at,
	}
}

// MarkFailure records a failed poll. The last good status and its
// timestamp survive; stale flips once the streak reaches the threshold.
func (c *Cell) MarkFailure(errText string, streak, threshold int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.FailureStreak = streak
	c.snap.LastError = errText
	c.snap.Stale = streak >= threshold
}

// Load returns a copy of the current snapshot.
func (c *Cell) Load() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
