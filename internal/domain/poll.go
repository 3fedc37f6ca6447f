package domain

import (
	"time"

	"github.com/google/uuid"
)

// PollResponse is one responder's latest answer to the active poll.
type PollResponse struct {
	Key    string    `json:"key"`
	Option string    `json:"option"`
	At     time.Time `json:"at"`
}

// PollOptionResult is the tally line for one option letter.
type PollOptionResult struct {
	Letter  string  `json:"letter"`
	Text    string  `json:"text"`
	Votes   int     `json:"votes"`
	Percent float64 `json:"percent"`
}

// PollTally summarizes a poll at a point in time.
type PollTally struct {
	ID        uuid.UUID          `json:"id"`
	Question  string             `json:"question"`
	Active    bool               `json:"active"`
	Responses int                `json:"responses"`
	Options   []PollOptionResult `json:"options"`
	// Ordered by response time; populated when the poll is closed.
	Timeline []PollResponse `json:"timeline,omitempty"`
}

// OptionLetter maps a zero-based option index to its letter (0 -> "A").
func OptionLetter(i int) string {
	return string(rune('A' + i))
}
