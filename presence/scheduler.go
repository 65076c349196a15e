package presence

import (
	"sync"
	"time"
)

// Clock supplies the current time. Swapped for a fake in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Scheduler owns at most one pending callback. Scheduling replaces any
// previously pending callback, so the owner never has more than a single
// timer in flight and teardown can cancel everything with one call.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
	Cancel()
}

type timerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
}

func newTimerScheduler() *timerScheduler {
	return &timerScheduler{}
}

func (s *timerScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

func (s *timerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
