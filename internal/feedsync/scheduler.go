// Package feedsync keeps a view's held feed page consistent with upstream
// mutations, coalescing change-stream bursts into debounced re-fetches and
// applying delete notifications optimistically.
package feedsync

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Scheduler schedules a callback after a delay. The synchronizer never
// touches the wall clock directly, so tests can drive it with a virtual
// clock.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

// NewScheduler returns a Scheduler backed by the wall clock.
func NewScheduler() Scheduler {
	return realScheduler{}
}
