package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/session"
	"github.com/aliskhannn/exam-prep/internal/storage"
)

// FlowRegistry owns one QuizFlow per user and creates them lazily.
type FlowRegistry struct {
	flows      *storage.SessionStorage[*QuizFlow]
	provider   QuestionProvider
	tracker    ActivityTracker
	asked      AskedRepository
	logger     *zap.Logger
	maxCount   int
	askedLimit int
}

// NewFlowRegistry creates a registry whose flows share the given collaborators.
func NewFlowRegistry(
	provider QuestionProvider,
	tracker ActivityTracker,
	asked AskedRepository,
	logger *zap.Logger,
	maxCount int,
	askedLimit int,
) *FlowRegistry {
	return &FlowRegistry{
		flows:      storage.NewSessionStorage[*QuizFlow](),
		provider:   provider,
		tracker:    tracker,
		asked:      asked,
		logger:     logger,
		maxCount:   maxCount,
		askedLimit: askedLimit,
	}
}

// Get returns the user's flow, restoring persisted asked ids on first use.
// A failed restore is retried by the flow before it next generates or saves.
func (r *FlowRegistry) Get(ctx context.Context, userID string) *QuizFlow {
	created := false
	flow := r.flows.GetOrCreate(userID, func() *QuizFlow {
		created = true
		return NewQuizFlow(
			userID,
			session.NewStore(r.askedLimit),
			r.provider,
			r.tracker,
			r.asked,
			r.logger,
			r.maxCount,
		)
	})

	if created {
		r.logger.Debug("quiz session created",
			zap.String("user_id", userID),
			zap.Int("active_sessions", r.flows.Len()),
		)
		if err := flow.Restore(ctx); err != nil {
			r.logger.Error("failed to restore quiz session",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return flow
}

// Forget drops the in-memory flow of a user. Persisted asked ids are kept.
func (r *FlowRegistry) Forget(userID string) {
	r.flows.Delete(userID)
}
