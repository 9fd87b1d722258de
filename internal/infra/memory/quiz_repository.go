package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
)

// QuizLoader fetches raw quiz documents from a backing store (files, Postgres, ...).
type QuizLoader interface {
	LoadDocument(ctx context.Context, quizID string) (string, error)
}

// QuizRepository validates loaded documents and caches the resulting specs
// with TTL to avoid repeated loads.
type QuizRepository struct {
	loader    QuizLoader
	validator quizspec.Validator
	ttl       time.Duration
	clock     func() time.Time
	sf        singleflight.Group
	rnd       *rand.Rand
	rndMu     sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	spec      *domain.QuizSpec
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, validator quizspec.Validator, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:    loader,
		validator: validator,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:     make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (*domain.QuizSpec, error) {
	if spec, ok := r.cached(quizID); ok {
		return spec, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if spec, ok := r.cached(quizID); ok {
			return spec, nil
		}

		doc, err := r.loader.LoadDocument(ctx, quizID)
		if err != nil {
			return nil, err
		}
		res := r.validator.Validate(doc)
		if !res.Valid {
			return nil, fmt.Errorf("quiz %s: %w", quizID, res.Err())
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			spec:      res.Spec,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return res.Spec, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.QuizSpec), nil
}

func (r *QuizRepository) cached(quizID string) (*domain.QuizSpec, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		return entry.spec, true
	}
	return nil, false
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory map of documents (useful for tests/demos).
type StaticQuizLoader struct {
	documents map[string]string
}

func NewStaticQuizLoader(documents map[string]string) *StaticQuizLoader {
	return &StaticQuizLoader{documents: documents}
}

func (l *StaticQuizLoader) LoadDocument(_ context.Context, quizID string) (string, error) {
	if doc, ok := l.documents[quizID]; ok {
		return doc, nil
	}
	return "", domain.ErrQuizNotFound
}

// DirQuizLoader reads <dir>/<quizID>.yaml or .yml.
type DirQuizLoader struct {
	dir string
}

func NewDirQuizLoader(dir string) *DirQuizLoader {
	return &DirQuizLoader{dir: dir}
}

func (l *DirQuizLoader) LoadDocument(_ context.Context, quizID string) (string, error) {
	if quizID == "" || quizID != filepath.Base(quizID) {
		return "", domain.ErrQuizNotFound
	}
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := os.ReadFile(filepath.Join(l.dir, quizID+ext))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read quiz %s: %w", quizID, err)
		}
	}
	return "", domain.ErrQuizNotFound
}
