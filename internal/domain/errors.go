package domain

import "errors"

var (
	// ErrInvalidCredentials is returned when a login matches neither role's rule.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnexpectedMessage indicates a peer sent a message out of protocol order.
	ErrUnexpectedMessage = errors.New("unexpected message")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates stored quiz content that cannot be examined.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrNotRegistered is returned when a notification target has no registration.
	ErrNotRegistered = errors.New("client not registered")
	// ErrNotStudent is returned when a countdown is requested for a teacher.
	ErrNotStudent = errors.New("countdowns are only armed for students")
	// ErrStartDeferred reports that a countdown start is waiting on a one-shot
	// retry because the student has not registered yet.
	ErrStartDeferred = errors.New("countdown start deferred until registration")
	// ErrPollActive is returned when a poll is started while another one is open.
	ErrPollActive = errors.New("a poll is already active")
	// ErrNoActivePoll is returned for poll operations outside an open poll.
	ErrNoActivePoll = errors.New("no active poll")
	// ErrInvalidOption indicates a poll answer outside the poll's option letters.
	ErrInvalidOption = errors.New("invalid poll option")
	// ErrMalformedDatagram is returned by datagram decoders.
	ErrMalformedDatagram = errors.New("malformed datagram")
)
