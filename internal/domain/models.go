package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role distinguishes the two kinds of exam participants.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole normalizes a wire role. Unknown roles yield "".
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent
	case RoleTeacher:
		return RoleTeacher
	}
	return ""
}

// Credential is the first message of every exam connection.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// NoAnswer marks a question the student left blank.
const NoAnswer = -1

// Question models an MCQ question with a zero-based correct option index.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// Quiz is the ordered question set handed to every student.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Validate rejects content no student could answer: an empty question list,
// a question with fewer than two options or a correct index out of range.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: %q has no questions", ErrInvalidQuiz, q.ID)
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: %q question %d has %d options", ErrInvalidQuiz, q.ID, i+1, len(question.Options))
		}
		if question.Correct < 0 || question.Correct >= len(question.Options) {
			return fmt.Errorf("%w: %q question %d correct index %d", ErrInvalidQuiz, q.ID, i+1, question.Correct)
		}
	}
	return nil
}

// Clone deep-copies the question list so callers cannot mutate a cached quiz.
func (q Quiz) Clone() Quiz {
	out := Quiz{ID: q.ID, Questions: make([]Question, len(q.Questions))}
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// QuizSession is one student's exam state. It is owned by a single connection.
type QuizSession struct {
	Student   string
	Questions []Question
	Answers   []int
	Score     int
	StartedAt time.Time
}

// ResultRecord is appended once per completed session and never mutated.
type ResultRecord struct {
	Student     string    `json:"student"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completedAt"`
}
