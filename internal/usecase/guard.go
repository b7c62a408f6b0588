package usecase

import (
	"sync"
	"time"
)

// IgnoreReason explains why a trigger was rejected.
type IgnoreReason string

const (
	IgnoreDebounce   IgnoreReason = "debounce"
	IgnoreProcessing IgnoreReason = "processing"
	IgnoreGrace      IgnoreReason = "grace"
)

// TriggerGuard serializes hotkey triggers. A trigger is rejected when it
// arrives within the debounce window of the previous accepted trigger, while
// another trigger is being handled, or during the grace period after one
// finished.
type TriggerGuard struct {
	debounce time.Duration
	grace    time.Duration

	mu          sync.Mutex
	lastTrigger time.Time
	processing  bool
	busyUntil   time.Time
}

func NewTriggerGuard(debounce, grace time.Duration) *TriggerGuard {
	return &TriggerGuard{debounce: debounce, grace: grace}
}

// Acquire admits a trigger at now. The caller must Release it when handled.
func (g *TriggerGuard) Acquire(now time.Time) (bool, IgnoreReason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.processing {
		return false, IgnoreProcessing
	}
	if !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.debounce {
		return false, IgnoreDebounce
	}
	if now.Before(g.busyUntil) {
		return false, IgnoreGrace
	}
	g.lastTrigger = now
	g.processing = true
	return true, ""
}

func (g *TriggerGuard) Release(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processing = false
	g.busyUntil = now.Add(g.grace)
}
