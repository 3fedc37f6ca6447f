package app

import (
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/metrics"
)

// ResultBoard is the shared, append-only list of scored results together with
// the set of observers that receive the full list on every append.
type ResultBoard struct {
	now       func() time.Time
	mu        sync.Mutex
	records   []domain.ResultRecord
	observers map[chan []domain.ResultRecord]struct{}
}

func NewResultBoard() *ResultBoard {
	return NewResultBoardWithClock(time.Now)
}

// NewResultBoardWithClock is test-only for deterministic timestamps.
func NewResultBoardWithClock(now func() time.Time) *ResultBoard {
	return &ResultBoard{
		now:       now,
		observers: make(map[chan []domain.ResultRecord]struct{}),
	}
}

// Append records a completed session and publishes the new list to every
// observer. Append and publish happen under one lock so observers never see
// lists out of completion order.
func (b *ResultBoard) Append(record domain.ResultRecord) []domain.ResultRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record.CompletedAt.IsZero() {
		record.CompletedAt = b.now()
	}
	b.records = append(b.records, record)
	return b.publishLocked()
}

// Snapshot returns a copy of the current list.
func (b *ResultBoard) Snapshot() []domain.ResultRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Subscribe registers an observer. The returned channel already holds the
// current list. The caller must invoke cancel to avoid leaks.
func (b *ResultBoard) Subscribe() (<-chan []domain.ResultRecord, func()) {
	ch := make(chan []domain.ResultRecord, 8)

	b.mu.Lock()
	b.observers[ch] = struct{}{}
	ch <- b.snapshotLocked()
	b.mu.Unlock()
	metrics.ResultObservers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.observers[ch]; ok {
				delete(b.observers, ch)
				close(ch)
			}
			b.mu.Unlock()
			metrics.ResultObservers.Dec()
		})
	}
	return ch, cancel
}

// Observers reports how many observers are subscribed.
func (b *ResultBoard) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func (b *ResultBoard) publishLocked() []domain.ResultRecord {
	list := b.snapshotLocked()
	for ch := range b.observers {
		select {
		case ch <- list:
		default:
			// Slow observer: replace its oldest pending list. The newest list is a
			// superset of every older one.
			select {
			case <-ch:
			default:
			}
			ch <- list
		}
	}
	return list
}

func (b *ResultBoard) snapshotLocked() []domain.ResultRecord {
	out := make([]domain.ResultRecord, len(b.records))
	copy(out, b.records)
	return out
}
