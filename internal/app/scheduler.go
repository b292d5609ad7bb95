package app

import "time"

// Scheduler runs f once after d. The returned stop reports whether the call
// was prevented.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// timerTask is an armed timer. Callbacks compare the room's current task
// pointer with their own so a stale callback never acts.
type timerTask struct {
	stop func() bool
}

func (t *timerTask) cancel() {
	if t != nil && t.stop != nil {
		t.stop()
	}
}
