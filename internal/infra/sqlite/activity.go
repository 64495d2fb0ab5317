package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// ActivityRepository stores user activity logs in sqlite.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Record inserts an activity and sets its ID.
func (r *ActivityRepository) Record(ctx context.Context, a *entities.Activity) error {
	details := []byte("{}")
	if a.Details != nil {
		var err error
		if details, err = json.Marshal(a.Details); err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_logs (user_id, action, details, created_at) VALUES (?, ?, ?, ?)",
		a.UserID, a.Action, string(details), a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("activity id: %w", err)
	}

	return nil
}

// ListRecent returns the user's latest activities, newest first.
func (r *ActivityRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, action, details, created_at FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*entities.Activity
	for rows.Next() {
		var (
			a         entities.Activity
			details   string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, fmt.Errorf("decode activity details: %w", err)
		}
		a.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, &a)
	}

	return out, rows.Err()
}
