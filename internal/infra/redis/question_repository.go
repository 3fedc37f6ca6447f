package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/cachettl"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from the external content store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestionRepository shares validated quizzes between service instances
// through Redis, stored as JSON under quiz:{quizID}.
type QuestionRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    *cachettl.Jittered
	group  singleflight.Group
}

func NewQuestionRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{client: client, loader: loader, ttl: cachettl.New(ttl)}
}

func (r *QuestionRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	v, err, _ := r.group.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(); err != nil {
			return domain.Quiz{}, err
		}
		raw, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.client.Set(ctx, r.key(quizID), raw, r.ttl.Next()).Err(); err != nil {
			log.Printf("cache quiz %s: %v", quizID, err)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz).Clone(), nil
}

// Invalidate removes the shared copy so every instance reloads it.
func (r *QuestionRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.key(quizID)).Err()
}

// cached treats a missing, undecodable or invalid entry as a miss; the bad
// entry is deleted so the loader's copy replaces it.
func (r *QuestionRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, false
	}
	if err != nil {
		log.Printf("read cached quiz %s: %v", quizID, err)
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err == nil {
		err = quiz.Validate()
	}
	if err != nil {
		log.Printf("discarding cached quiz %s: %v", quizID, err)
		r.client.Del(ctx, r.key(quizID))
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuestionRepository) key(quizID string) string {
	return "quiz:" + quizID
}
