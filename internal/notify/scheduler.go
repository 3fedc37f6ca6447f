package notify

import (
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
)

// Scheduler arms deferred tasks in groups addressed by a handle. Cancelling a
// handle stops every task of the group that has not fired yet; a task that
// fires after its group was cancelled does nothing.
type Scheduler struct {
	clock  Clock
	mu     sync.Mutex
	next   domain.TimerHandle
	groups map[domain.TimerHandle][]Timer
}

func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		groups: make(map[domain.TimerHandle][]Timer),
	}
}

// NewHandle opens an empty group.
func (s *Scheduler) NewHandle() domain.TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.groups[s.next] = nil
	return s.next
}

// Arm schedules fn after delay within group h. It reports false when h has
// already been cancelled.
func (s *Scheduler) Arm(h domain.TimerHandle, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timers, ok := s.groups[h]
	if !ok {
		return false
	}
	t := s.clock.AfterFunc(delay, func() {
		if s.Live(h) {
			fn()
		}
	})
	s.groups[h] = append(timers, t)
	return true
}

// Cancel stops every pending task of h and reports whether h was live.
func (s *Scheduler) Cancel(h domain.TimerHandle) bool {
	s.mu.Lock()
	timers, ok := s.groups[h]
	delete(s.groups, h)
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
	return ok
}

// Live reports whether h has not been cancelled.
func (s *Scheduler) Live(h domain.TimerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[h]
	return ok
}

// Len is the number of live groups.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}
