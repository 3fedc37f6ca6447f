package notify

import (
	"fmt"
	"strconv"
	"strings"

	"classroom-quiz-service/internal/domain"
)

// Kind is the leading tag of an outbound notification datagram.
type Kind string

const (
	KindQuizStart       Kind = "QUIZ_START"
	KindNotification    Kind = "NOTIFICATION"
	KindTimeWarning     Kind = "TIME_WARNING"
	KindQuizEnd         Kind = "QUIZ_END"
	KindQuizReminder    Kind = "QUIZ_REMINDER"
	KindAnnouncement    Kind = "ANNOUNCEMENT"
	KindSystemTime      Kind = "SYSTEM_TIME"
	KindRegistrationAck Kind = "REGISTRATION_ACK"
	KindQuickPoll       Kind = "QUICK_POLL"
)

var knownKinds = map[Kind]struct{}{
	KindQuizStart:       {},
	KindNotification:    {},
	KindTimeWarning:     {},
	KindQuizEnd:         {},
	KindQuizReminder:    {},
	KindAnnouncement:    {},
	KindSystemTime:      {},
	KindRegistrationAck: {},
	KindQuickPoll:       {},
}

// Notification is an outbound datagram: KIND:text.
type Notification struct {
	Kind Kind
	Text string
}

func (n Notification) Encode() []byte {
	return []byte(string(n.Kind) + ":" + n.Text)
}

func (n Notification) String() string {
	return string(n.Kind) + ":" + n.Text
}

// ParseNotification decodes a datagram received by a notification client.
func ParseNotification(payload []byte) (Notification, error) {
	tag, text, ok := strings.Cut(string(payload), ":")
	if !ok {
		return Notification{}, fmt.Errorf("%w: missing kind tag", domain.ErrMalformedDatagram)
	}
	kind := Kind(tag)
	if _, known := knownKinds[kind]; !known {
		return Notification{}, fmt.Errorf("%w: unknown kind %q", domain.ErrMalformedDatagram, tag)
	}
	return Notification{Kind: kind, Text: text}, nil
}

// Inbound is a datagram received on a registration or poll-response port.
type Inbound interface {
	inbound()
}

// Register is REGISTER:<name>:<returnPort>[:<role>].
type Register struct {
	Name string
	Port int
	Role domain.Role
}

// RegisterClient is REGISTER_CLIENT:<name>.
type RegisterClient struct {
	Name string
}

// PollAnswer is POLL_ANSWER:<letter>:<responderName>.
type PollAnswer struct {
	Option    string
	Responder string
}

func (Register) inbound()       {}
func (RegisterClient) inbound() {}
func (PollAnswer) inbound()     {}

// ParseInbound decodes a client datagram into its variant.
func ParseInbound(payload []byte) (Inbound, error) {
	raw := strings.TrimSpace(string(payload))
	tag, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrMalformedDatagram, raw)
	}
	switch tag {
	case "REGISTER":
		return parseRegister(rest)
	case "REGISTER_CLIENT":
		name := strings.TrimSpace(rest)
		if name == "" {
			return nil, fmt.Errorf("%w: empty client name", domain.ErrMalformedDatagram)
		}
		return RegisterClient{Name: name}, nil
	case "POLL_ANSWER":
		letter, responder, ok := strings.Cut(rest, ":")
		letter = strings.ToUpper(strings.TrimSpace(letter))
		if !ok || len(letter) != 1 || strings.TrimSpace(responder) == "" {
			return nil, fmt.Errorf("%w: %q", domain.ErrMalformedDatagram, raw)
		}
		return PollAnswer{Option: letter, Responder: strings.TrimSpace(responder)}, nil
	}
	return nil, fmt.Errorf("%w: unknown tag %q", domain.ErrMalformedDatagram, tag)
}

func parseRegister(rest string) (Register, error) {
	parts := strings.Split(rest, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return Register{}, fmt.Errorf("%w: REGISTER:%s", domain.ErrMalformedDatagram, rest)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port <= 0 || port > 65535 {
		return Register{}, fmt.Errorf("%w: bad port %q", domain.ErrMalformedDatagram, parts[1])
	}
	role := domain.RoleForName(parts[0])
	if len(parts) == 3 {
		if role = domain.ParseRole(parts[2]); role == "" {
			return Register{}, fmt.Errorf("%w: bad role %q", domain.ErrMalformedDatagram, parts[2])
		}
	}
	return Register{Name: parts[0], Port: port, Role: role}, nil
}
