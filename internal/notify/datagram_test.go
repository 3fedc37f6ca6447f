package notify_test

import (
	"errors"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/notify"
)

func TestParseInbound(t *testing.T) {
	cases := []struct {
		raw  string
		want notify.Inbound
	}{
		{"REGISTER:lee:6001", notify.Register{Name: "lee", Port: 6001, Role: domain.RoleStudent}},
		{"REGISTER:MrTeacher:6002", notify.Register{Name: "MrTeacher", Port: 6002, Role: domain.RoleTeacher}},
		{"REGISTER:smith:6003:teacher", notify.Register{Name: "smith", Port: 6003, Role: domain.RoleTeacher}},
		{"REGISTER_CLIENT:viewer\n", notify.RegisterClient{Name: "viewer"}},
		{"POLL_ANSWER:b:ada", notify.PollAnswer{Option: "B", Responder: "ada"}},
	}
	for _, tc := range cases {
		got, err := notify.ParseInbound([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %+v, got %+v", tc.raw, tc.want, got)
		}
	}

	for _, raw := range []string{"", "REGISTER", "REGISTER:lee", "REGISTER:lee:port", "REGISTER:lee:1:janitor", "HELLO:x", "POLL_ANSWER:AB:x"} {
		if _, err := notify.ParseInbound([]byte(raw)); !errors.Is(err, domain.ErrMalformedDatagram) {
			t.Fatalf("%q: expected malformed datagram, got %v", raw, err)
		}
	}
}

func TestParseNotification(t *testing.T) {
	n, err := notify.ParseNotification([]byte("TIME_WARNING:⏰ 2 minutes remaining! Speed up!"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Kind != notify.KindTimeWarning || n.Text != "⏰ 2 minutes remaining! Speed up!" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if _, err := notify.ParseNotification([]byte("BOGUS:x")); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cmds := []notify.Command{
		notify.StartTimer{Student: "ada"},
		notify.StopTimer{Student: "ada"},
		notify.StudentScored("ada", 7, 10),
		notify.StudentStarted("ada"),
		notify.Event{Text: "hello: everyone"},
	}
	for _, cmd := range cmds {
		got, err := notify.ParseCommand(cmd.Encode())
		if err != nil {
			t.Fatalf("%s: %v", cmd.Encode(), err)
		}
		if got != cmd {
			t.Fatalf("expected %+v, got %+v", cmd, got)
		}
	}
}

func TestParseLegacyStartEvent(t *testing.T) {
	got, err := notify.ParseCommand([]byte("QUIZ_EVENT:Student bob has started the quiz!"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev, ok := got.(notify.Event)
	if !ok || ev.Scope != notify.EventStarted {
		t.Fatalf("expected a started event, got %+v", got)
	}
}

func TestCountdownSchedule(t *testing.T) {
	steps := notify.Countdown(300 * time.Second)
	want := []time.Duration{60, 120, 180, 240, 270, 285, 300}
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(steps))
	}
	for i, s := range steps {
		if s.At != want[i]*time.Second {
			t.Fatalf("step %d at %s, want %ds", i, s.At, want[i])
		}
	}
	if steps[len(steps)-1].Level != notify.LevelEnd {
		t.Fatalf("last step must end the quiz")
	}

	short := notify.Countdown(90 * time.Second)
	for _, s := range short {
		if s.At > 90*time.Second {
			t.Fatalf("step beyond duration: %+v", s)
		}
	}
	if short[0].At != 60*time.Second || short[1].At != 75*time.Second {
		t.Fatalf("unexpected short schedule %+v", short)
	}
}
