// Package schedule provides deferred execution for the map facade: a timer
// abstraction, a serial event loop that runs callbacks to completion one at a
// time, a manual clock for tests and a trailing-edge debounce.
package schedule

import (
	"sync"
	"time"
)

// Timer is a pending deferred call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call
	// already fired or was stopped.
	Stop() bool
}

// Scheduler defers calls.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Debounce returns a function that delays fn until wait has elapsed since
// its last invocation. With immediate set, fn fires on the first call of a
// quiet period and the trailing call is suppressed.
func Debounce(s Scheduler, wait time.Duration, immediate bool, fn func()) func() {
	var (
		mu    sync.Mutex
		timer Timer
		gen   uint64
	)

	return func() {
		mu.Lock()
		gen++
		current := gen
		callNow := immediate && timer == nil
		if timer != nil {
			timer.Stop()
		}
		timer = s.AfterFunc(wait, func() {
			mu.Lock()
			// a later call superseded this timer after it was queued
			if gen != current {
				mu.Unlock()
				return
			}
			timer = nil
			mu.Unlock()
			if !immediate {
				fn()
			}
		})
		mu.Unlock()

		if callNow {
			fn()
		}
	}
}
