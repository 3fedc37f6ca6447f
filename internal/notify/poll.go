package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// PollManager holds at most one quick poll at a time. Closing a poll is
// terminal: it never reopens and accepts no further answers.
type PollManager struct {
	now     func() time.Time
	mu      sync.Mutex
	current *poll
}

type poll struct {
	id        uuid.UUID
	question  string
	options   []string
	responses map[string]domain.PollResponse
	active    bool
}

func NewPollManager(now func() time.Time) *PollManager {
	return &PollManager{now: now}
}

// Start opens a new poll. It fails while another poll is active.
func (m *PollManager) Start(question string, options []string) (domain.PollTally, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < 2 || len(options) > 26 {
		return domain.PollTally{}, fmt.Errorf("poll needs a question and 2-26 options")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.active {
		return domain.PollTally{}, domain.ErrPollActive
	}
	cleaned := make([]string, len(options))
	for i, opt := range options {
		cleaned[i] = strings.TrimSpace(opt)
	}
	m.current = &poll{
		id:        uuid.New(),
		question:  question,
		options:   cleaned,
		responses: make(map[string]domain.PollResponse),
		active:    true,
	}
	return m.current.tally(false), nil
}

// Answer records a responder's choice; the key is ip:name so two students
// behind one address stay distinct. A later answer replaces an earlier one.
func (m *PollManager) Answer(ip, responder, letter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.active {
		return domain.ErrNoActivePoll
	}
	letter = strings.ToUpper(letter)
	if len(letter) != 1 || letter[0] < 'A' || int(letter[0]-'A') >= len(m.current.options) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOption, letter)
	}
	key := ip + ":" + responder
	m.current.responses[key] = domain.PollResponse{Key: key, Option: letter, At: m.now()}
	return nil
}

// Tally reports the counts of the current (or last closed) poll.
func (m *PollManager) Tally() (domain.PollTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.PollTally{}, domain.ErrNoActivePoll
	}
	return m.current.tally(!m.current.active), nil
}

// Close ends the active poll and returns the final tally with responses
// ordered by response time.
func (m *PollManager) Close() (domain.PollTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.active {
		return domain.PollTally{}, domain.ErrNoActivePoll
	}
	m.current.active = false
	return m.current.tally(true), nil
}

// Announcement is the QUICK_POLL datagram of the active poll.
func (m *PollManager) Announcement() (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.active {
		return Notification{}, false
	}
	labelled := make([]string, len(m.current.options))
	for i, opt := range m.current.options {
		labelled[i] = domain.OptionLetter(i) + "." + opt
	}
	return Notification{Kind: KindQuickPoll, Text: m.current.question + ":" + strings.Join(labelled, "|")}, true
}

func (p *poll) tally(withTimeline bool) domain.PollTally {
	counts := make(map[string]int, len(p.options))
	for _, r := range p.responses {
		counts[r.Option]++
	}
	total := len(p.responses)
	out := domain.PollTally{
		ID:        p.id,
		Question:  p.question,
		Active:    p.active,
		Responses: total,
		Options:   make([]domain.PollOptionResult, len(p.options)),
	}
	for i, opt := range p.options {
		letter := domain.OptionLetter(i)
		res := domain.PollOptionResult{Letter: letter, Text: opt, Votes: counts[letter]}
		if total > 0 {
			res.Percent = float64(res.Votes) * 100 / float64(total)
		}
		out.Options[i] = res
	}
	if withTimeline {
		for _, r := range p.responses {
			out.Timeline = append(out.Timeline, r)
		}
		sort.Slice(out.Timeline, func(i, j int) bool {
			return out.Timeline[i].At.Before(out.Timeline[j].At)
		})
	}
	return out
}
