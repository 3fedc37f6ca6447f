package redis

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "exam:session:"

// SessionTracker is a Redis-backed implementation of app.SessionTracker.
// Every student inside an exam owns a liveness key that expires after the
// exam duration plus grace, so a crashed server never leaves stale entries
// behind for longer than one exam.
type SessionTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionTracker(client *redis.Client, ttl time.Duration) *SessionTracker {
	return &SessionTracker{client: client, ttl: ttl}
}

func (s *SessionTracker) Begin(ctx context.Context, student string) error {
	return s.client.Set(ctx, s.key(student), time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

func (s *SessionTracker) End(ctx context.Context, student string) error {
	return s.client.Del(ctx, s.key(student)).Err()
}

func (s *SessionTracker) Active(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			out = append(out, strings.TrimPrefix(key, sessionPrefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(out)
	return out, nil
}

func (s *SessionTracker) key(student string) string {
	return sessionPrefix + student
}
