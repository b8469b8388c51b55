package game

import "time"

// Timer is a pending deferred callback
type Timer interface {
	// Stop cancels the callback. Returns false if it already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Rooms wrap it so that callbacks
// execute under the room lock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SchedulerFunc adapts a function to the Scheduler interface
type SchedulerFunc func(d time.Duration, f func()) Timer

// AfterFunc calls fn(d, f)
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer {
	return fn(d, f)
}

// RealScheduler is backed by time.AfterFunc
type RealScheduler struct{}

// AfterFunc schedules f on its own goroutine after d
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
