package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS asked_questions (
		user_id     TEXT        NOT NULL,
		question_id TEXT        NOT NULL,
		position    INTEGER     NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS asked_questions_user_position_idx
		ON asked_questions (user_id, position)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id         BIGSERIAL   PRIMARY KEY,
		user_id    TEXT        NOT NULL,
		action     TEXT        NOT NULL,
		details    JSONB       NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS activity_logs_user_created_idx
		ON activity_logs (user_id, created_at DESC)`,
}

// Migrate creates the tables used by the repositories if they do not exist.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
