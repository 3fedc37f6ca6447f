package notify

import (
	"fmt"
	"net"
	"strings"

	"classroom-quiz-service/internal/domain"
)

// Command is a control-channel datagram sent by the exam server (or any
// trusted local sender) to the notification engine.
type Command interface {
	Encode() []byte
	command()
}

// StartTimer is START_QUIZ_TIMER:<student>.
type StartTimer struct {
	Student string
}

// StopTimer is STOP_QUIZ_TIMER:<student>.
type StopTimer struct {
	Student string
}

// EventScope selects the routing policy of an ad-hoc event.
type EventScope int

const (
	// EventGeneral goes to every registration.
	EventGeneral EventScope = iota
	// EventStarted goes to teachers only.
	EventStarted
	// EventScore goes to the named student and every teacher.
	EventScore
)

// Event is QUIZ_EVENT:<text>, QUIZ_EVENT:STARTED:<student>:<text> or
// QUIZ_EVENT:SCORE:<student>:<text>.
type Event struct {
	Scope   EventScope
	Student string
	Text    string
}

func (StartTimer) command() {}
func (StopTimer) command()  {}
func (Event) command()      {}

func (c StartTimer) Encode() []byte { return []byte("START_QUIZ_TIMER:" + c.Student) }
func (c StopTimer) Encode() []byte  { return []byte("STOP_QUIZ_TIMER:" + c.Student) }

func (c Event) Encode() []byte {
	switch c.Scope {
	case EventStarted:
		return []byte("QUIZ_EVENT:STARTED:" + c.Student + ":" + c.Text)
	case EventScore:
		return []byte("QUIZ_EVENT:SCORE:" + c.Student + ":" + c.Text)
	}
	return []byte("QUIZ_EVENT:" + c.Text)
}

// StudentStarted builds the teachers-only "student started" event.
func StudentStarted(student string) Event {
	return Event{Scope: EventStarted, Student: student, Text: "Student " + student + " has started the quiz!"}
}

// StudentScored builds the score event routed to the student and teachers.
func StudentScored(student string, score, total int) Event {
	return Event{
		Scope:   EventScore,
		Student: student,
		Text:    fmt.Sprintf("%s finished the quiz! Score: %d/%d", student, score, total),
	}
}

// ParseCommand decodes a control datagram.
func ParseCommand(payload []byte) (Command, error) {
	raw := strings.TrimSpace(string(payload))
	tag, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrMalformedDatagram, raw)
	}
	switch tag {
	case "START_QUIZ_TIMER":
		if rest == "" {
			return nil, fmt.Errorf("%w: missing student", domain.ErrMalformedDatagram)
		}
		return StartTimer{Student: rest}, nil
	case "STOP_QUIZ_TIMER":
		if rest == "" {
			return nil, fmt.Errorf("%w: missing student", domain.ErrMalformedDatagram)
		}
		return StopTimer{Student: rest}, nil
	case "QUIZ_EVENT":
		return parseEvent(rest)
	}
	return nil, fmt.Errorf("%w: unknown command %q", domain.ErrMalformedDatagram, tag)
}

func parseEvent(rest string) (Event, error) {
	for prefix, scope := range map[string]EventScope{"SCORE:": EventScore, "STARTED:": EventStarted} {
		if !strings.HasPrefix(rest, prefix) {
			continue
		}
		student, text, ok := strings.Cut(strings.TrimPrefix(rest, prefix), ":")
		if !ok || student == "" {
			return Event{}, fmt.Errorf("%w: QUIZ_EVENT:%s", domain.ErrMalformedDatagram, rest)
		}
		return Event{Scope: scope, Student: student, Text: text}, nil
	}
	if rest == "" {
		return Event{}, fmt.Errorf("%w: empty event", domain.ErrMalformedDatagram)
	}
	// Older senders announce starts as free text.
	if strings.Contains(rest, "started the quiz") {
		return Event{Scope: EventStarted, Text: rest}, nil
	}
	return Event{Scope: EventGeneral, Text: rest}, nil
}

// ControlClient sends commands to the control channel. Delivery is
// best-effort: there is no acknowledgement and no retry.
type ControlClient struct {
	conn *net.UDPConn
}

// DialControl resolves the control listener address.
func DialControl(addr string) (*ControlClient, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve control addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial control: %w", err)
	}
	return &ControlClient{conn: conn}, nil
}

func (c *ControlClient) Send(cmd Command) error {
	_, err := c.conn.Write(cmd.Encode())
	return err
}

func (c *ControlClient) Close() error {
	return c.conn.Close()
}
