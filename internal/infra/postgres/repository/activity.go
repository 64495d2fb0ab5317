package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/infra/postgres"
)

// ActivityRepository stores user activity logs.
type ActivityRepository struct {
	db postgres.DBTX
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db postgres.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Record inserts an activity and sets its ID.
func (r *ActivityRepository) Record(ctx context.Context, a *entities.Activity) error {
	details, err := marshalDetails(a.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activity_logs (user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRow(ctx, query, a.UserID, a.Action, details, a.CreatedAt).Scan(&a.ID); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	return nil
}

// ListRecent returns the user's latest activities, newest first.
func (r *ActivityRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Activity, error) {
	query := `
		SELECT id, user_id, action, details, created_at
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*entities.Activity
	for rows.Next() {
		var (
			a       entities.Activity
			details []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode activity details: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return out, nil
}

func marshalDetails(details map[string]any) (string, error) {
	if details == nil {
		return "{}", nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode activity details: %w", err)
	}
	return string(b), nil
}
