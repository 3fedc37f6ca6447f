package notify_test

import (
	"errors"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/notify"
)

func TestPollLifecycle(t *testing.T) {
	clock := newManualClock()
	polls := notify.NewPollManager(clock.Now)

	if err := polls.Answer("127.0.0.1", "ada", "A"); !errors.Is(err, domain.ErrNoActivePoll) {
		t.Fatalf("expected ErrNoActivePoll, got %v", err)
	}
	if _, err := polls.Start("Only one?", []string{"yes"}); err == nil {
		t.Fatalf("a poll needs at least two options")
	}
	if _, err := polls.Start("Lunch?", []string{"Pizza", "Salad", "Soup"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = polls.Answer("127.0.0.1", "ada", "A")
	clock.Advance(time.Second)
	_ = polls.Answer("127.0.0.1", "bob", "b")
	clock.Advance(time.Second)
	_ = polls.Answer("127.0.0.1", "ada", "B")
	if err := polls.Answer("127.0.0.1", "cy", "D"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}

	tally, _ := polls.Tally()
	if tally.Responses != 2 || tally.Options[1].Votes != 2 || tally.Options[1].Percent != 100 {
		t.Fatalf("ada's second answer should replace the first: %+v", tally)
	}

	final, err := polls.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if final.Active || len(final.Timeline) != 2 || final.Timeline[0].Key != "127.0.0.1:bob" {
		t.Fatalf("unexpected final tally %+v", final)
	}
	if _, err := polls.Close(); !errors.Is(err, domain.ErrNoActivePoll) {
		t.Fatalf("closing twice should fail, got %v", err)
	}
	if err := polls.Answer("127.0.0.1", "late", "A"); !errors.Is(err, domain.ErrNoActivePoll) {
		t.Fatalf("closed poll must reject answers, got %v", err)
	}
	if _, ok := polls.Announcement(); ok {
		t.Fatalf("closed poll has no announcement")
	}
}
