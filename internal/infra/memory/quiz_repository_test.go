package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]string{
			"quiz-1": quizspec.ExampleDocument,
		}),
	}
	repo := NewQuizRepository(loader, quizspec.Validator{}, time.Minute)

	spec, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if spec.Title != "Roamin' in Rome" {
		t.Fatalf("unexpected title %q", spec.Title)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]string{"quiz-1": quizspec.ExampleDocument}),
	}
	repo := NewQuizRepository(loader, quizspec.Validator{}, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryRejectsInvalidDocuments(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]string{
		"broken": "title: 1\n",
	}), quizspec.Validator{}, time.Minute)

	_, err := repo.GetQuiz(context.Background(), "broken")
	var verr *quizspec.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %+v", verr.Diagnostics)
	}

	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDirQuizLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rome.yml"), []byte(quizspec.ExampleDocument), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader := NewDirQuizLoader(dir)

	doc, err := loader.LoadDocument(context.Background(), "rome")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc != quizspec.ExampleDocument {
		t.Fatalf("unexpected document")
	}
	for _, id := range []string{"missing", "../rome", ""} {
		if _, err := loader.LoadDocument(context.Background(), id); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found for %q, got %v", id, err)
		}
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadDocument(ctx context.Context, quizID string) (string, error) {
	l.calls++
	return l.QuizLoader.LoadDocument(ctx, quizID)
}
