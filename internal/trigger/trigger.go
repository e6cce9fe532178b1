// Package trigger decides when a telemetry frame should start a capture
// cycle. It is a two-state machine: idle, and cooling down after a fire.
package trigger

import "time"

// Trigger fires when distance drops below the threshold and no cooldown is
// active. The cooldown is armed at the moment of firing, so a fast frame
// stream can never start overlapping cycles.
type Trigger struct {
	threshold float64
	cooldown  time.Duration
	now       func() time.Time

	previousDistance *float64
	cooldownUntil    time.Time
}

// New builds a trigger. now may be nil, in which case time.Now is used.
func New(threshold float64, cooldown time.Duration, now func() time.Time) *Trigger {
	if now == nil {
		now = time.Now
	}
	return &Trigger{threshold: threshold, cooldown: cooldown, now: now}
}

// Observe processes one distance reading and reports whether a capture
// cycle should fire. The previous-distance scalar is updated on every call
// whether or not the trigger fired. The very first frame compares against
// the absolute threshold only, so it may fire immediately.
func (t *Trigger) Observe(distance float64) bool {
	d := distance
	defer func() { t.previousDistance = &d }()

	if distance >= t.threshold {
		return false
	}

	now := t.now()
	if now.Before(t.cooldownUntil) {
		return false
	}

	t.cooldownUntil = now.Add(t.cooldown)
	return true
}

// PreviousDistance returns the last observed distance, or nil before the
// first frame.
func (t *Trigger) PreviousDistance() *float64 {
	return t.previousDistance
}

// CoolingDown reports whether a cooldown window is currently active.
func (t *Trigger) CoolingDown() bool {
	return t.now().Before(t.cooldownUntil)
}
