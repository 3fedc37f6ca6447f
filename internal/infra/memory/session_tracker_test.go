package memory

import (
	"context"
	"testing"
)

func TestSessionTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tracker := NewSessionTracker()

	_ = tracker.Begin(ctx, "lee")
	_ = tracker.Begin(ctx, "ada")
	_ = tracker.Begin(ctx, "ada")

	active, _ := tracker.Active(ctx)
	if len(active) != 2 || active[0] != "ada" || active[1] != "lee" {
		t.Fatalf("expected [ada lee], got %v", active)
	}

	_ = tracker.End(ctx, "ada")
	active, _ = tracker.Active(ctx)
	if len(active) != 2 {
		t.Fatalf("expected ada to stay while a second session is open, got %v", active)
	}

	_ = tracker.End(ctx, "ada")
	_ = tracker.End(ctx, "lee")
	active, _ = tracker.Active(ctx)
	if len(active) != 0 {
		t.Fatalf("expected no active sessions, got %v", active)
	}
}
