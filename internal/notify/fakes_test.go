package notify_test

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"classroom-quiz-service/internal/notify"
)

// manualClock fires timers only from Advance, in deadline order.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) notify.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// pending counts armed timers that have not fired or been stopped.
func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, running every timer that comes due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].at.Equal(c.timers[j].at) {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at.Before(c.timers[j].at)
		})
		var next *manualTimer
		for len(c.timers) > 0 {
			t := c.timers[0]
			if t.stopped {
				c.timers = c.timers[1:]
				continue
			}
			if t.at.After(target) {
				break
			}
			c.timers = c.timers[1:]
			t.stopped = true
			next = t
			break
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

type sent struct {
	To   string
	Body string
}

// recordingSender records datagrams and fails for addresses in down.
type recordingSender struct {
	mu   sync.Mutex
	log  []sent
	down map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{down: make(map[string]bool)}
}

func (s *recordingSender) Send(addr *net.UDPAddr, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down[addr.String()] {
		return errors.New("connection refused")
	}
	s.log = append(s.log, sent{To: addr.String(), Body: string(payload)})
	return nil
}

func (s *recordingSender) fail(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down[addr] = true
}

func (s *recordingSender) to(addr string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.log {
		if m.To == addr {
			out = append(out, m.Body)
		}
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}
