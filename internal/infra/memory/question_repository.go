package memory

import (
	"context"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/cachettl"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from the external content store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestionRepository keeps validated quizzes in process memory. Every caller
// gets its own copy of the question list.
type QuestionRepository struct {
	loader QuizLoader
	ttl    *cachettl.Jittered
	clock  func() time.Time
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	quiz      domain.Quiz
	expiresAt time.Time // zero: never
}

func NewQuestionRepository(loader QuizLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader:  loader,
		ttl:     cachettl.New(ttl),
		clock:   time.Now,
		entries: make(map[string]entry),
	}
}

func (r *QuestionRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID); ok {
		return quiz.Clone(), nil
	}

	v, err, _ := r.group.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.fresh(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(); err != nil {
			return domain.Quiz{}, err
		}
		quiz = quiz.Clone()

		e := entry{quiz: quiz}
		if ttl := r.ttl.Next(); ttl > 0 {
			e.expiresAt = r.clock().Add(ttl)
		}
		r.mu.Lock()
		r.entries[quizID] = e
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz).Clone(), nil
}

// Invalidate forgets a cached quiz so the next exam reloads it.
func (r *QuestionRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuestionRepository) fresh(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[quizID]
	if !ok {
		return domain.Quiz{}, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return e.quiz, true
}

// StaticQuizLoader serves the built-in content when no database is configured.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
