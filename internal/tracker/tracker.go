package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// ActivityRecorder persists a single activity.
type ActivityRecorder interface {
	Record(ctx context.Context, activity *entities.Activity) error
}

// AsyncTracker queues user actions and writes them from a background worker.
// Track never blocks and never fails; recorder errors are only logged.
type AsyncTracker struct {
	queue        chan *entities.Activity
	recorder     ActivityRecorder
	logger       *zap.Logger
	writeTimeout time.Duration
}

// New creates a tracker. Run must be started for queued actions to be written.
func New(recorder ActivityRecorder, logger *zap.Logger, queueSize int, writeTimeout time.Duration) *AsyncTracker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	return &AsyncTracker{
		queue:        make(chan *entities.Activity, queueSize),
		recorder:     recorder,
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// Track enqueues an action. When the queue is full the action is dropped.
func (t *AsyncTracker) Track(userID, action string, details map[string]any) {
	activity := entities.NewActivity(userID, action, details)

	select {
	case t.queue <- activity:
	default:
		t.logger.Warn("activity queue full, dropping action",
			zap.String("user_id", userID),
			zap.String("action", action),
		)
	}
}

// Run writes queued actions until ctx is cancelled, then drains what is left.
func (t *AsyncTracker) Run(ctx context.Context) error {
	t.logger.Info("activity tracker started")
	defer t.logger.Info("activity tracker stopped")

	for {
		select {
		case <-ctx.Done():
			t.drain()
			return nil
		case activity := <-t.queue:
			t.record(activity)
		}
	}
}

func (t *AsyncTracker) drain() {
	for {
		select {
		case activity := <-t.queue:
			t.record(activity)
		default:
			return
		}
	}
}

func (t *AsyncTracker) record(activity *entities.Activity) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("activity recorder panicked",
				zap.String("action", activity.Action),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()

	if err := t.recorder.Record(ctx, activity); err != nil {
		t.logger.Error("failed to record activity",
			zap.String("user_id", activity.UserID),
			zap.String("action", activity.Action),
			zap.Error(err),
		)
	}
}
