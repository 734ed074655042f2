package app

import "time"

// Timer is a cancellable deferred call. Stop must be safe to call repeatedly.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers. Production code uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallScheduler returns a Scheduler backed by the runtime timer heap.
func WallScheduler() Scheduler {
	return wallScheduler{}
}
