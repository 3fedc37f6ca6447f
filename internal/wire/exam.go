package wire

import (
	"encoding/json"
	"fmt"
	"io"

	"classroom-quiz-service/internal/domain"
)

// Exam protocol message types.
const (
	TypeCredential   = "credential"
	TypeLoginResult  = "login_result"
	TypeQuestions    = "questions"
	TypeSessionStart = "session_start"
	TypeAnswers      = "answers"
	TypeScore        = "score"
	TypeResults      = "results"
)

// Envelope is the structured object carried by every exam frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QuestionItem is a question as shown to a student: the correct index
// never leaves the server.
type QuestionItem struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type Questions struct {
	Questions []QuestionItem `json:"questions"`
}

// NewQuestions strips the answer key from an ordered question set.
func NewQuestions(qs []domain.Question) Questions {
	items := make([]QuestionItem, len(qs))
	for i, q := range qs {
		items[i] = QuestionItem{Text: q.Text, Options: q.Options}
	}
	return Questions{Questions: items}
}

type SessionStart struct {
	DurationSeconds int `json:"durationSeconds"`
}

type Answers struct {
	Answers []int `json:"answers"`
}

type Score struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type Results struct {
	Records []domain.ResultRecord `json:"records"`
}

// Send encodes payload under msgType and writes it as one frame.
func Send(w io.Writer, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	body, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return WriteFrame(w, body)
}

// Receive reads one frame and decodes its envelope.
func Receive(r io.Reader) (Envelope, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}

// Expect receives the next envelope and decodes it into v, failing with
// domain.ErrUnexpectedMessage when the type differs.
func Expect(r io.Reader, msgType string, v any) error {
	env, err := Receive(r)
	if err != nil {
		return err
	}
	if env.Type != msgType {
		return fmt.Errorf("%w: want %s, got %s", domain.ErrUnexpectedMessage, msgType, env.Type)
	}
	return env.Decode(v)
}
