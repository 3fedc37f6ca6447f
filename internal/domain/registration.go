package domain

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// TimerHandle identifies a group of deferred sends armed for one countdown.
// Zero means no countdown is armed.
type TimerHandle uint64

// Registration is a notification client's declared address.
type Registration struct {
	Name          string      `json:"name"`
	IP            net.IP      `json:"ip"`
	Port          int         `json:"port"`
	Role          Role        `json:"role"`
	Timer         TimerHandle `json:"-"`
	QuizStartedAt time.Time   `json:"quizStartedAt,omitempty"`
}

// IsTeacher reports whether the registration belongs to a teacher.
func (r Registration) IsTeacher() bool {
	return r.Role == RoleTeacher
}

// UDPAddr is the datagram destination for this registration.
func (r Registration) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: r.IP, Port: r.Port}
}

// Address renders ip:port.
func (r Registration) Address() string {
	return net.JoinHostPort(r.IP.String(), strconv.Itoa(r.Port))
}

// RoleForName infers the role of a client that registered without one.
func RoleForName(name string) Role {
	if strings.Contains(strings.ToLower(name), "teacher") {
		return RoleTeacher
	}
	return RoleStudent
}
