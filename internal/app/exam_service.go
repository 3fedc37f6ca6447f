package app

import (
	"context"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
)

// QuestionRepository loads quiz content (from cache/backing store).
type QuestionRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Invalidator is implemented by repositories that cache quiz content.
type Invalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// SessionTracker records which students are currently inside an exam
// (in-memory, Redis, etc).
type SessionTracker interface {
	Begin(ctx context.Context, student string) error
	End(ctx context.Context, student string) error
	Active(ctx context.Context) ([]string, error)
}

// Policy is the fixed credential rule set and exam timing.
type Policy struct {
	QuizID          string
	Duration        time.Duration
	TeacherUsername string
	TeacherPassword string
	StudentPassword string
}

// ExamService contains the exam use cases shared by every connection.
type ExamService struct {
	policy   Policy
	quizzes  QuestionRepository
	sessions SessionTracker
	board    *ResultBoard
	now      func() time.Time
}

func NewExamService(policy Policy, quizzes QuestionRepository, sessions SessionTracker, board *ResultBoard) *ExamService {
	return &ExamService{
		policy:   policy,
		quizzes:  quizzes,
		sessions: sessions,
		board:    board,
		now:      time.Now,
	}
}

// Board exposes the shared result board.
func (s *ExamService) Board() *ResultBoard {
	return s.board
}

// Duration is the fixed exam length announced to students.
func (s *ExamService) Duration() time.Duration {
	return s.policy.Duration
}

// Authenticate validates a credential against the fixed rule set.
func (s *ExamService) Authenticate(cred domain.Credential) (domain.Role, error) {
	switch domain.ParseRole(cred.Role) {
	case domain.RoleTeacher:
		if cred.Username == s.policy.TeacherUsername && cred.Password == s.policy.TeacherPassword {
			return domain.RoleTeacher, nil
		}
	case domain.RoleStudent:
		if cred.Username != "" && cred.Password == s.policy.StudentPassword {
			return domain.RoleStudent, nil
		}
	}
	return "", domain.ErrInvalidCredentials
}

// StartSession loads the question set for a freshly logged-in student and
// marks them as inside an exam.
func (s *ExamService) StartSession(ctx context.Context, student string) (*domain.QuizSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, s.policy.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", s.policy.QuizID, err)
	}
	if err := s.sessions.Begin(ctx, student); err != nil {
		return nil, fmt.Errorf("track session: %w", err)
	}
	return &domain.QuizSession{
		Student:   student,
		Questions: quiz.Questions,
		StartedAt: s.now(),
	}, nil
}

// Complete scores the submitted answers, appends the result and returns it.
func (s *ExamService) Complete(session *domain.QuizSession, answers []int) domain.ResultRecord {
	session.Answers = answers
	session.Score = Grade(session.Questions, answers)

	record := s.board.Append(domain.ResultRecord{
		Student:     session.Student,
		Score:       session.Score,
		Total:       len(session.Questions),
		CompletedAt: s.now(),
	})
	return record[len(record)-1]
}

// ReloadQuiz drops any cached copy of the exam's quiz and loads it again,
// returning the fresh question count. Sessions already running keep the
// questions they were handed.
func (s *ExamService) ReloadQuiz(ctx context.Context) (int, error) {
	if inv, ok := s.quizzes.(Invalidator); ok {
		if err := inv.Invalidate(ctx, s.policy.QuizID); err != nil {
			return 0, fmt.Errorf("invalidate quiz %s: %w", s.policy.QuizID, err)
		}
	}
	quiz, err := s.quizzes.GetQuiz(ctx, s.policy.QuizID)
	if err != nil {
		return 0, fmt.Errorf("load quiz %s: %w", s.policy.QuizID, err)
	}
	return len(quiz.Questions), nil
}

// EndSession clears the liveness marker of a student's exam.
func (s *ExamService) EndSession(ctx context.Context, student string) error {
	return s.sessions.End(ctx, student)
}

// ActiveSessions lists students currently inside an exam.
func (s *ExamService) ActiveSessions(ctx context.Context) ([]string, error) {
	return s.sessions.Active(ctx)
}

// Grade counts positions where the answer equals the correct option, over the
// shorter of the two sequences.
func Grade(questions []domain.Question, answers []int) int {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	score := 0
	for i := 0; i < n; i++ {
		if answers[i] == questions[i].Correct {
			score++
		}
	}
	return score
}
