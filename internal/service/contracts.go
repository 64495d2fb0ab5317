package service

import (
	"context"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// QuestionProvider produces question batches. Implementations never fail:
// any transport or parsing problem is reported as an empty batch.
type QuestionProvider interface {
	Generate(ctx context.Context, req entities.QuestionRequest) []entities.Question
}

// ActivityTracker records user actions without blocking the caller.
// Track never fails and is never awaited.
type ActivityTracker interface {
	Track(userID, action string, details map[string]any)
}

// AskedRepository persists the asked question ids of a user.
type AskedRepository interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Save(ctx context.Context, userID string, ids []string) error
}

// NewsFetcher loads the latest news articles.
type NewsFetcher interface {
	TopHeadlines(ctx context.Context) ([]entities.Article, error)
}
