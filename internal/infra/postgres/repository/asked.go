package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/exam-prep/internal/infra/postgres"
)

// TxRunner runs fn inside a transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// AskedRepository persists the asked question ids of every user.
type AskedRepository struct {
	db postgres.DBTX
	tx TxRunner
}

// NewAskedRepository creates a new AskedRepository.
func NewAskedRepository(db postgres.DBTX, tx TxRunner) *AskedRepository {
	return &AskedRepository{db: db, tx: tx}
}

// Load returns the user's asked ids, oldest first.
func (r *AskedRepository) Load(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT question_id
		FROM asked_questions
		WHERE user_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("load asked questions: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan asked questions: %w", err)
	}

	return ids, nil
}

// Save replaces the user's asked ids atomically.
func (r *AskedRepository) Save(ctx context.Context, userID string, ids []string) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM asked_questions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete asked questions: %w", err)
		}

		if len(ids) == 0 {
			return nil
		}

		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"asked_questions"},
			[]string{"user_id", "question_id", "position"},
			pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
				return []any{userID, ids[i], i}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert asked questions: %w", err)
		}

		return nil
	})
}
