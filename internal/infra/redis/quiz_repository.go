package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/infra/memory"
	"pubquiz-service/internal/quizspec"
)

// QuizRepository caches raw quiz documents in Redis and falls back to a loader on cache miss.
// Documents are stored as: SET quiz:{quizID}:document {yaml}
// They are validated on every read, so a cached document never bypasses the validator.
type QuizRepository struct {
	client    *redis.Client
	loader    memory.QuizLoader
	validator quizspec.Validator
	ttl       time.Duration
	sf        singleflight.Group
	rnd       *rand.Rand
	rndMu     sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, validator quizspec.Validator, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client:    client,
		loader:    loader,
		validator: validator,
		ttl:       ttl,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (*domain.QuizSpec, error) {
	doc, err := r.document(ctx, quizID)
	if err != nil {
		return nil, err
	}
	res := r.validator.Validate(doc)
	if !res.Valid {
		return nil, fmt.Errorf("quiz %s: %w", quizID, res.Err())
	}
	return res.Spec, nil
}

func (r *QuizRepository) document(ctx context.Context, quizID string) (string, error) {
	key := r.documentKey(quizID)

	doc, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return doc, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		doc, err := r.client.Get(ctx, key).Result()
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, redis.Nil) {
			// cache unavailable; serve from the loader without caching
			return r.loader.LoadDocument(ctx, quizID)
		}

		doc, err = r.loader.LoadDocument(ctx, quizID)
		if err != nil {
			return "", err
		}
		_ = r.client.Set(ctx, key, doc, r.ttlWithJitter()).Err()
		return doc, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops a cached document so the next read goes to the loader.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.documentKey(quizID)).Err()
}

func (r *QuizRepository) documentKey(quizID string) string {
	return "quiz:" + quizID + ":document"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
