package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/session"
	"github.com/aliskhannn/exam-prep/internal/tracker"
)

type fakeProvider struct {
	mu       sync.Mutex
	batches  [][]entities.Question
	requests []entities.QuestionRequest
	block    chan struct{}
}

func (p *fakeProvider) Generate(_ context.Context, req entities.QuestionRequest) []entities.Question {
	if p.block != nil {
		<-p.block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.batches) == 0 {
		return nil
	}
	b := p.batches[0]
	p.batches = p.batches[1:]
	return b
}

type fakeAsked struct {
	mu      sync.Mutex
	saved   map[string][]string
	loadErr error
	saveErr error
}

func newFakeAsked() *fakeAsked {
	return &fakeAsked{saved: make(map[string][]string)}
}

func (a *fakeAsked) Load(_ context.Context, userID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	return a.saved[userID], nil
}

func (a *fakeAsked) Save(_ context.Context, userID string, ids []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved[userID] = ids
	return nil
}

type trackedAction struct {
	userID  string
	action  string
	details map[string]any
}

type fakeTracker struct {
	mu      sync.Mutex
	actions []trackedAction
}

func (t *fakeTracker) Track(userID, action string, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions = append(t.actions, trackedAction{userID, action, details})
}

func (t *fakeTracker) names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.actions))
	for _, a := range t.actions {
		out = append(out, a.action)
	}
	return out
}

func makeQuestions(prefix string, n int) []entities.Question {
	out := make([]entities.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entities.Question{
			ID:            fmt.Sprintf("%s%d", prefix, i+1),
			Question:      fmt.Sprintf("Prompt %s%d", prefix, i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: 2,
			Explanation:   "Explanation",
			Category:      "History",
			Difficulty:    entities.DifficultyEasy,
		})
	}
	return out
}

func newTestFlow(p QuestionProvider, tr ActivityTracker, asked AskedRepository) *QuizFlow {
	return NewQuizFlow("user-1", session.NewStore(100), p, tr, asked, zap.NewNop(), 20)
}

var upscEasy = func(count int) GenerateRequest {
	return GenerateRequest{ExamType: "UPSC", Difficulty: "easy", Count: count}
}

func TestQuizFlowSingleQuestionScenario(t *testing.T) {
	q := entities.Question{
		ID:            "q1",
		Question:      "Which?",
		Options:       []string{"A", "B", "C", "D"},
		CorrectOption: 2,
		Explanation:   "C is right.",
	}
	p := &fakeProvider{batches: [][]entities.Question{{q}}}
	tr := &fakeTracker{}
	flow := newTestFlow(p, tr, newFakeAsked())

	assert.Equal(t, StateNoQuestion, flow.State())

	view, err := flow.Generate(context.Background(), upscEasy(1))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, view.State)
	require.NotNil(t, view.Question)
	assert.Nil(t, view.Question.CorrectOption)
	assert.Empty(t, view.Question.Explanation)

	_, err = flow.Select(1)
	require.NoError(t, err)

	record, view, err := flow.Submit()
	require.NoError(t, err)
	assert.False(t, record.IsCorrect)
	assert.Equal(t, "q1", record.QuestionID)
	assert.Equal(t, 1, record.SelectedOption)
	assert.Equal(t, StateSubmitted, view.State)
	assert.True(t, view.ShowExplanation)
	assert.Equal(t, "C is right.", view.Question.Explanation)
	require.NotNil(t, view.IsCorrect)
	assert.False(t, *view.IsCorrect)

	highlights := make([]string, 0, 4)
	for _, o := range view.Question.Options {
		highlights = append(highlights, o.Highlight)
	}
	assert.Equal(t, []string{HighlightDimmed, HighlightIncorrect, HighlightCorrect, HighlightDimmed}, highlights)

	view, err = flow.Next()
	require.NoError(t, err)
	assert.Equal(t, StateNoQuestion, view.State)
	assert.Nil(t, view.Question)

	assert.Equal(t, []string{
		entities.ActionQuestionGenerated,
		entities.ActionAnswerSubmitted,
		entities.ActionQuestionAdvanced,
	}, tr.names())
}

func TestQuizFlowShortBatch(t *testing.T) {
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("q", 3)}}
	flow := newTestFlow(p, &fakeTracker{}, newFakeAsked())

	view, err := flow.Generate(context.Background(), upscEasy(5))
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)

	var shown []string
	for view.State != StateNoQuestion {
		shown = append(shown, view.Question.ID)
		_, err = flow.Select(2)
		require.NoError(t, err)
		_, _, err = flow.Submit()
		require.NoError(t, err)
		view, err = flow.Next()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"q1", "q2", "q3"}, shown)
}

func TestQuizFlowEmptyBatchIsNotice(t *testing.T) {
	tr := &fakeTracker{}
	flow := newTestFlow(&fakeProvider{}, tr, newFakeAsked())

	view, err := flow.Generate(context.Background(), upscEasy(5))
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.Equal(t, StateNoQuestion, view.State)
	assert.False(t, view.Loading)
	assert.Empty(t, tr.names())
}

func TestQuizFlowExcludesAskedIDs(t *testing.T) {
	asked := newFakeAsked()
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("a", 2), makeQuestions("b", 1)}}
	flow := newTestFlow(p, &fakeTracker{}, asked)

	_, err := flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)
	_, err = flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)

	require.Len(t, p.requests, 2)
	assert.Empty(t, p.requests[0].AskedQuestionIDs)
	assert.Equal(t, []string{"a1", "a2"}, p.requests[1].AskedQuestionIDs)
	assert.Equal(t, entities.ExamUPSC, p.requests[1].ExamType)
	assert.Equal(t, []string{"a1", "a2", "b1"}, asked.saved["user-1"])
}

func TestQuizFlowRestoreAndClearAsked(t *testing.T) {
	asked := newFakeAsked()
	asked.saved["user-1"] = []string{"old1", "old2"}
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("n", 1)}}
	tr := &fakeTracker{}
	flow := newTestFlow(p, tr, asked)

	require.NoError(t, flow.Restore(context.Background()))
	_, err := flow.Generate(context.Background(), upscEasy(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"old1", "old2"}, p.requests[0].AskedQuestionIDs)

	view := flow.ClearAsked(context.Background())
	assert.Equal(t, 0, view.AskedCount)
	assert.Empty(t, asked.saved["user-1"])
	assert.Contains(t, tr.names(), entities.ActionAskedCleared)
}

func TestQuizFlowSaveFailureKeepsState(t *testing.T) {
	asked := newFakeAsked()
	asked.saveErr = errors.New("db down")
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("q", 2)}}
	flow := newTestFlow(p, &fakeTracker{}, asked)

	view, err := flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)
	assert.Equal(t, 2, view.AskedCount)
	assert.Equal(t, StateAwaitingSelection, view.State)
}

func TestQuizFlowTransitionErrors(t *testing.T) {
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("q", 2)}}
	flow := newTestFlow(p, &fakeTracker{}, newFakeAsked())

	_, err := flow.Select(0)
	assert.ErrorIs(t, err, ErrNoActiveQuestion)
	_, _, err = flow.Submit()
	assert.ErrorIs(t, err, ErrNoActiveQuestion)
	_, err = flow.Next()
	assert.ErrorIs(t, err, ErrNoActiveQuestion)

	_, err = flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)

	_, _, err = flow.Submit()
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = flow.Next()
	assert.ErrorIs(t, err, ErrNotSubmitted)
	_, err = flow.Select(4)
	assert.ErrorIs(t, err, ErrInvalidOption)

	view, err := flow.Select(0)
	require.NoError(t, err)
	view, err = flow.Select(3)
	require.NoError(t, err)
	require.NotNil(t, view.SelectedOption)
	assert.Equal(t, 3, *view.SelectedOption)
	assert.Equal(t, HighlightSelected, view.Question.Options[3].Highlight)
	assert.Equal(t, HighlightNeutral, view.Question.Options[0].Highlight)

	_, _, err = flow.Submit()
	require.NoError(t, err)
	_, err = flow.Select(1)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, _, err = flow.Submit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestQuizFlowValidatesRequest(t *testing.T) {
	flow := newTestFlow(&fakeProvider{}, &fakeTracker{}, newFakeAsked())

	tests := []struct {
		name string
		req  GenerateRequest
		want error
	}{
		{"unknown exam", GenerateRequest{ExamType: "GRE", Difficulty: "easy", Count: 1}, entities.ErrUnknownExamType},
		{"unknown difficulty", GenerateRequest{ExamType: "SSC", Difficulty: "insane", Count: 1}, entities.ErrUnknownDifficulty},
		{"zero count", GenerateRequest{ExamType: "SSC", Difficulty: "hard", Count: 0}, ErrInvalidCount},
		{"too many", GenerateRequest{ExamType: "banking", Difficulty: "Medium", Count: 21}, ErrInvalidCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuizFlowRejectsConcurrentGeneration(t *testing.T) {
	p := &fakeProvider{
		batches: [][]entities.Question{makeQuestions("q", 1)},
		block:   make(chan struct{}),
	}
	flow := newTestFlow(p, &fakeTracker{}, newFakeAsked())

	done := make(chan error, 1)
	go func() {
		_, err := flow.Generate(context.Background(), upscEasy(1))
		done <- err
	}()

	require.Eventually(t, func() bool { return flow.View().Loading }, time.Second, 5*time.Millisecond)

	_, err := flow.Generate(context.Background(), upscEasy(1))
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	close(p.block)
	require.NoError(t, <-done)
	assert.False(t, flow.View().Loading)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, *entities.Activity) error {
	return errors.New("network failure")
}

func TestQuizFlowTrackerFailureDoesNotAffectState(t *testing.T) {
	q := makeQuestions("q", 1)
	q[0].CorrectOption = 1
	tr := tracker.New(failingRecorder{}, zap.NewNop(), 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Run(ctx) }()

	flow := newTestFlow(&fakeProvider{batches: [][]entities.Question{q}}, tr, newFakeAsked())

	_, err := flow.Generate(context.Background(), upscEasy(1))
	require.NoError(t, err)
	_, err = flow.Select(1)
	require.NoError(t, err)

	record, view, err := flow.Submit()
	require.NoError(t, err)
	assert.True(t, record.IsCorrect)
	assert.Equal(t, StateSubmitted, view.State)
	require.NotNil(t, view.IsCorrect)
	assert.True(t, *view.IsCorrect)
}

func TestFlowRegistryRestoresOnce(t *testing.T) {
	asked := newFakeAsked()
	asked.saved["u1"] = []string{"x"}
	reg := NewFlowRegistry(&fakeProvider{}, &fakeTracker{}, asked, zap.NewNop(), 10, 100)

	flow := reg.Get(context.Background(), "u1")
	assert.Equal(t, 1, flow.View().AskedCount)
	assert.Same(t, flow, reg.Get(context.Background(), "u1"))

	reg.Forget("u1")
	assert.NotSame(t, flow, reg.Get(context.Background(), "u1"))
}

func TestFlowRegistryRestoreFailureKeepsPersistedIDs(t *testing.T) {
	asked := newFakeAsked()
	asked.saved["u1"] = []string{"old1", "old2", "old3"}
	asked.loadErr = errors.New("db down")
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("n", 2), makeQuestions("m", 1)}}
	reg := NewFlowRegistry(p, &fakeTracker{}, asked, zap.NewNop(), 10, 100)

	flow := reg.Get(context.Background(), "u1")
	assert.Equal(t, 0, flow.View().AskedCount)

	// The database is still down when the first batch is generated.
	_, err := flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"old1", "old2", "old3"}, asked.saved["u1"])

	asked.mu.Lock()
	asked.loadErr = nil
	asked.mu.Unlock()

	_, err = flow.Generate(context.Background(), upscEasy(1))
	require.NoError(t, err)

	require.Len(t, p.requests, 2)
	assert.Empty(t, p.requests[0].AskedQuestionIDs)
	assert.Equal(t, []string{"old1", "old2", "old3", "n1", "n2"}, p.requests[1].AskedQuestionIDs)
	assert.Equal(t, []string{"old1", "old2", "old3", "n1", "n2", "m1"}, asked.saved["u1"])
}

func TestQuizFlowClearAskedWithoutRestore(t *testing.T) {
	asked := newFakeAsked()
	asked.saved["user-1"] = []string{"old1"}
	asked.loadErr = errors.New("db down")
	flow := newTestFlow(&fakeProvider{}, &fakeTracker{}, asked)

	view := flow.ClearAsked(context.Background())
	assert.Equal(t, 0, view.AskedCount)
	assert.Empty(t, asked.saved["user-1"])
}

func TestQuizFlowGuardsStaleQuestion(t *testing.T) {
	p := &fakeProvider{batches: [][]entities.Question{makeQuestions("q", 2)}}
	flow := newTestFlow(p, &fakeTracker{}, newFakeAsked())

	_, err := flow.Generate(context.Background(), upscEasy(2))
	require.NoError(t, err)

	_, err = flow.SelectFor("q2", 1)
	assert.ErrorIs(t, err, ErrStaleQuestion)
	_, _, err = flow.SubmitFor("q2")
	assert.ErrorIs(t, err, ErrStaleQuestion)
	_, err = flow.NextFrom("q2")
	assert.ErrorIs(t, err, ErrStaleQuestion)

	view, err := flow.SelectFor("q1", 1)
	require.NoError(t, err)
	require.NotNil(t, view.SelectedOption)
	assert.Equal(t, 1, *view.SelectedOption)

	_, _, err = flow.SubmitFor("q1")
	require.NoError(t, err)
	view, err = flow.NextFrom("q1")
	require.NoError(t, err)
	assert.Equal(t, "q2", view.Question.ID)
}
