// Package cachettl spreads cache expirations so quizzes loaded together do
// not all expire in the same instant.
package cachettl

import (
	"math/rand"
	"sync"
	"time"
)

// Jittered hands out TTLs of Base plus up to 10% random extra.
type Jittered struct {
	Base time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(base time.Duration) *Jittered {
	return &Jittered{Base: base, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns the TTL for a fresh cache entry; zero means no expiry.
func (j *Jittered) Next() time.Duration {
	if j.Base <= 0 {
		return 0
	}
	extra := int64(j.Base) / 10
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Base + time.Duration(j.rnd.Int63n(extra+1))
}
