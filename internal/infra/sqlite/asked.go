package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AskedRepository persists asked question ids in sqlite.
type AskedRepository struct {
	db *sql.DB
}

func NewAskedRepository(db *sql.DB) *AskedRepository {
	return &AskedRepository{db: db}
}

// Load returns the user's asked ids, oldest first.
func (r *AskedRepository) Load(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT question_id FROM asked_questions WHERE user_id = ? ORDER BY position",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load asked questions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan asked question: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Save replaces the user's asked ids atomically.
func (r *AskedRepository) Save(ctx context.Context, userID string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM asked_questions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete asked questions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO asked_questions (user_id, question_id, position, created_at) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, userID, id, i, now); err != nil {
			return fmt.Errorf("insert asked question: %w", err)
		}
	}

	return tx.Commit()
}
