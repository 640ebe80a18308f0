package wotd

import (
	"sync"
	"time"
)

// MinimumDelay keeps a misconfigured or just-passed trigger from spinning.
const MinimumDelay = 5 * time.Second

// DelayUntil returns how long until the next hour:minute in now's location.
// A time of day equal to or before now is scheduled for the following day.
func DelayUntil(hour, minute int, now time.Time) time.Duration {
	y, m, d := now.Date()
	target := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return target.Sub(now)
}

// AfterFuncTimer is a Timer backed by time.AfterFunc.
type AfterFuncTimer struct {
	floor time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewTimer creates a timer whose delays are never shorter than floor.
func NewTimer(floor time.Duration) *AfterFuncTimer {
	return &AfterFuncTimer{floor: floor}
}

// Arm cancels the pending callback and schedules fn after max(d, floor).
func (t *AfterFuncTimer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if d < t.floor {
		d = t.floor
	}

	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		// A Stop that lost the race with the runtime must not run fn.
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.gen++
		t.mu.Unlock()

		fn()
	})
}

// Cancel is a no-op when nothing is armed.
func (t *AfterFuncTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Armed reports whether a callback is pending.
func (t *AfterFuncTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *AfterFuncTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}
