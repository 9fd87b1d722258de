package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pubquiz-service/internal/domain"
)

// QuizLoader loads raw quiz documents from the quizzes table.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadDocument(ctx context.Context, quizID string) (string, error) {
	var doc string
	err := l.pool.QueryRow(ctx, `SELECT document FROM quizzes WHERE id=$1`, quizID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrQuizNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load quiz: %w", err)
	}
	return doc, nil
}

// SaveDocument inserts or replaces a quiz document. Callers validate first.
func (l *QuizLoader) SaveDocument(ctx context.Context, quizID string, spec *domain.QuizSpec, doc string) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, document) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, document = EXCLUDED.document, updated_at = now()`,
		quizID, spec.Title, doc)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
