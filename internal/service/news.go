package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// NewsService serves the news feed from a cache refreshed when older than its TTL.
type NewsService struct {
	fetcher NewsFetcher
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	articles  []entities.Article
	fetchedAt time.Time
}

// NewNewsService creates a news service caching results for ttl.
func NewNewsService(fetcher NewsFetcher, ttl time.Duration, logger *zap.Logger) *NewsService {
	return &NewsService{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Latest returns cached articles while they are fresh and refetches otherwise.
// When a refetch fails, stale articles are served if there are any.
func (s *NewsService) Latest(ctx context.Context) ([]entities.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.ttl {
		if err := s.refreshLocked(ctx); err != nil {
			if s.articles == nil {
				return nil, err
			}
			s.logger.Warn("serving stale news", zap.Error(err))
		}
	}

	out := make([]entities.Article, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

// Refresh refetches the feed regardless of cache age.
func (s *NewsService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// Start refreshes the feed on the given cron schedule until ctx is cancelled.
func (s *NewsService) Start(ctx context.Context, schedule string) error {
	s.logger.Info("news refresher started", zap.String("schedule", schedule))

	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(schedule, func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("failed to refresh news", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("news refresher stopped")
	return nil
}

func (s *NewsService) refreshLocked(ctx context.Context) error {
	articles, err := s.fetcher.TopHeadlines(ctx)
	if err != nil {
		return err
	}

	s.articles = articles
	s.fetchedAt = s.now()
	s.logger.Debug("news refreshed", zap.Int("articles", len(articles)))
	return nil
}
