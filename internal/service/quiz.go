package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/session"
)

var (
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrGenerationInProgress = errors.New("question generation in progress")
	ErrInvalidCount         = errors.New("invalid question count")
	ErrNoActiveQuestion     = errors.New("no active question")
	ErrInvalidOption        = errors.New("invalid option")
	ErrAlreadySubmitted     = errors.New("answer already submitted")
	ErrNoSelection          = errors.New("no option selected")
	ErrNotSubmitted         = errors.New("answer not submitted")
	ErrStaleQuestion        = errors.New("question is no longer current")
)

// FlowState is the position of a quiz flow in the question/answer cycle.
type FlowState string

const (
	StateNoQuestion        FlowState = "no_question"
	StateAwaitingSelection FlowState = "awaiting_selection"
	StateSubmitted         FlowState = "submitted"
)

// Option highlights used by renderers.
const (
	HighlightNeutral   = "neutral"
	HighlightSelected  = "selected"
	HighlightCorrect   = "correct"
	HighlightIncorrect = "incorrect"
	HighlightDimmed    = "dimmed"
)

// GenerateRequest is what a user asks for when starting a new batch.
type GenerateRequest struct {
	ExamType   string `json:"examType"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Language   string `json:"language,omitempty"`
}

// OptionView is one rendered answer option.
type OptionView struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Highlight string `json:"highlight"`
}

// QuestionView is the displayable part of the current question.
// The answer and explanation are only present after submission.
type QuestionView struct {
	ID            string              `json:"id"`
	Question      string              `json:"question"`
	Category      string              `json:"category"`
	Difficulty    entities.Difficulty `json:"difficulty"`
	Options       []OptionView        `json:"options"`
	CorrectOption *int                `json:"correctOption,omitempty"`
	Explanation   string              `json:"explanation,omitempty"`
}

// QuizView is a render-ready snapshot of a quiz flow.
type QuizView struct {
	State           FlowState     `json:"state"`
	Loading         bool          `json:"loading"`
	Question        *QuestionView `json:"question,omitempty"`
	Position        int           `json:"position"`
	Total           int           `json:"total"`
	SelectedOption  *int          `json:"selectedOption,omitempty"`
	IsSubmitted     bool          `json:"isSubmitted"`
	ShowExplanation bool          `json:"showExplanation"`
	IsCorrect       *bool         `json:"isCorrect,omitempty"`
	AskedCount      int           `json:"askedCount"`
}

// QuizFlow drives the question/answer cycle of a single user.
// All transitions are serialised; the provider call runs outside the lock
// and a second generation request is rejected while one is outstanding.
type QuizFlow struct {
	mu         sync.Mutex
	userID     string
	store      *session.Store
	generating bool
	restored   bool // persisted asked ids have been merged into store

	provider QuestionProvider
	tracker  ActivityTracker
	asked    AskedRepository
	logger   *zap.Logger
	maxCount int
}

// NewQuizFlow creates a flow for userID backed by store.
func NewQuizFlow(
	userID string,
	store *session.Store,
	provider QuestionProvider,
	tracker ActivityTracker,
	asked AskedRepository,
	logger *zap.Logger,
	maxCount int,
) *QuizFlow {
	return &QuizFlow{
		userID:   userID,
		store:    store,
		provider: provider,
		tracker:  tracker,
		asked:    asked,
		logger:   logger.With(zap.String("user_id", userID)),
		maxCount: maxCount,
	}
}

// Restore merges the persisted asked ids into the store. It is a no-op once a load has succeeded.
func (f *QuizFlow) Restore(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restoreLocked(ctx)
}

// restoreLocked loads persisted ids ahead of any ids gathered in memory since the flow was created.
func (f *QuizFlow) restoreLocked(ctx context.Context) error {
	if f.restored {
		return nil
	}

	ids, err := f.asked.Load(ctx, f.userID)
	if err != nil {
		return fmt.Errorf("load asked question ids: %w", err)
	}

	pending := f.store.AskedQuestionIDs()
	f.store.ClearAskedQuestionIDs()
	f.store.LoadAskedQuestionIDs(ids)
	f.store.LoadAskedQuestionIDs(pending)
	f.restored = true

	return nil
}

// Generate requests a new batch and displays its first question.
// An empty batch yields ErrNoQuestionsAvailable and leaves the flow in NoQuestion.
func (f *QuizFlow) Generate(ctx context.Context, gr GenerateRequest) (QuizView, error) {
	req, err := f.buildRequest(gr)
	if err != nil {
		return QuizView{}, err
	}

	f.mu.Lock()
	if f.generating {
		f.mu.Unlock()
		return QuizView{}, ErrGenerationInProgress
	}
	if err := f.restoreLocked(ctx); err != nil {
		f.logger.Warn("generating without persisted asked question ids", zap.Error(err))
	}
	f.generating = true
	req.AskedQuestionIDs = f.store.AskedQuestionIDs()
	f.mu.Unlock()

	f.logger.Debug("requesting questions",
		zap.String("exam_type", string(req.ExamType)),
		zap.String("difficulty", string(req.Difficulty)),
		zap.Int("count", req.Count),
		zap.Int("excluded", len(req.AskedQuestionIDs)),
	)

	batch := f.provider.Generate(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.generating = false

	if len(batch) == 0 {
		f.logger.Info("question provider returned no questions")
		return f.view(), ErrNoQuestionsAvailable
	}

	f.store.SetQuestions(batch)
	f.store.SetCurrentQuestion(&batch[0])

	ids := make([]string, 0, len(batch))
	repeated := 0
	for _, q := range batch {
		if f.store.WasAsked(q.ID) {
			repeated++
		}
		f.store.AddAskedQuestionID(q.ID)
		ids = append(ids, q.ID)
	}
	if repeated > 0 {
		f.logger.Warn("provider returned already asked questions", zap.Int("repeated", repeated))
	}
	f.saveAsked(ctx)

	f.tracker.Track(f.userID, entities.ActionQuestionGenerated, map[string]any{
		"examType":    string(req.ExamType),
		"difficulty":  string(req.Difficulty),
		"requested":   req.Count,
		"received":    len(batch),
		"repeated":    repeated,
		"questionIds": ids,
	})

	return f.view(), nil
}

// Select records the user's pick for the current question. A later pick replaces an earlier one.
func (f *QuizFlow) Select(index int) (QuizView, error) {
	return f.SelectFor("", index)
}

// SelectFor is Select that fails with ErrStaleQuestion unless questionID is displayed.
// An empty questionID matches any question.
func (f *QuizFlow) SelectFor(questionID string, index int) (QuizView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireCurrent(questionID); err != nil {
		return f.view(), err
	}
	if err := f.requireAwaitingSelection(); err != nil {
		return f.view(), err
	}
	if !f.store.CurrentQuestion().ValidOption(index) {
		return f.view(), fmt.Errorf("%w: %d", ErrInvalidOption, index)
	}

	f.store.SelectOption(index)

	return f.view(), nil
}

// Submit checks the selected option and reveals the explanation.
// The answer is reported to the activity tracker without waiting for it.
func (f *QuizFlow) Submit() (entities.AnswerRecord, QuizView, error) {
	return f.SubmitFor("")
}

// SubmitFor is Submit guarded like SelectFor.
func (f *QuizFlow) SubmitFor(questionID string) (entities.AnswerRecord, QuizView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireCurrent(questionID); err != nil {
		return entities.AnswerRecord{}, f.view(), err
	}
	if err := f.requireAwaitingSelection(); err != nil {
		return entities.AnswerRecord{}, f.view(), err
	}
	selected, ok := f.store.SelectedOption()
	if !ok {
		return entities.AnswerRecord{}, f.view(), ErrNoSelection
	}

	f.store.SubmitAnswer()
	record := entities.NewAnswerRecord(f.store.CurrentQuestion(), selected)

	f.tracker.Track(f.userID, entities.ActionAnswerSubmitted, map[string]any{
		"questionId":     record.QuestionID,
		"selectedOption": record.SelectedOption,
		"isCorrect":      record.IsCorrect,
	})

	return record, f.view(), nil
}

// Next moves past a submitted question. When the batch is exhausted the flow returns to NoQuestion.
func (f *QuizFlow) Next() (QuizView, error) {
	return f.NextFrom("")
}

// NextFrom is Next guarded like SelectFor.
func (f *QuizFlow) NextFrom(questionID string) (QuizView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireCurrent(questionID); err != nil {
		return f.view(), err
	}
	if f.generating {
		return f.view(), ErrGenerationInProgress
	}
	current := f.store.CurrentQuestion()
	if current == nil {
		return f.view(), ErrNoActiveQuestion
	}
	if !f.store.IsSubmitted() {
		return f.view(), ErrNotSubmitted
	}

	f.store.NextQuestion()

	details := map[string]any{"fromQuestionId": current.ID}
	if next := f.store.CurrentQuestion(); next != nil {
		details["toQuestionId"] = next.ID
	}
	f.tracker.Track(f.userID, entities.ActionQuestionAdvanced, details)

	return f.view(), nil
}

// ClearAsked forgets every asked question id so earlier questions may be served again.
func (f *QuizFlow) ClearAsked(ctx context.Context) QuizView {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.store.ClearAskedQuestionIDs()
	// An explicit clear supersedes whatever is persisted.
	f.restored = true
	f.saveAsked(ctx)
	f.tracker.Track(f.userID, entities.ActionAskedCleared, nil)

	return f.view()
}

// View returns the current render-ready state.
func (f *QuizFlow) View() QuizView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view()
}

// State returns the current position in the question/answer cycle.
func (f *QuizFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state()
}

func (f *QuizFlow) state() FlowState {
	switch {
	case f.store.CurrentQuestion() == nil:
		return StateNoQuestion
	case f.store.IsSubmitted():
		return StateSubmitted
	default:
		return StateAwaitingSelection
	}
}

func (f *QuizFlow) requireCurrent(questionID string) error {
	if questionID == "" {
		return nil
	}
	if cur := f.store.CurrentQuestion(); cur == nil || cur.ID != questionID {
		return ErrStaleQuestion
	}
	return nil
}

func (f *QuizFlow) requireAwaitingSelection() error {
	if f.generating {
		return ErrGenerationInProgress
	}
	switch f.state() {
	case StateNoQuestion:
		return ErrNoActiveQuestion
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

func (f *QuizFlow) buildRequest(gr GenerateRequest) (entities.QuestionRequest, error) {
	examType, err := entities.ParseExamType(gr.ExamType)
	if err != nil {
		return entities.QuestionRequest{}, err
	}
	difficulty, err := entities.ParseDifficulty(gr.Difficulty)
	if err != nil {
		return entities.QuestionRequest{}, err
	}
	if gr.Count <= 0 || gr.Count > f.maxCount {
		return entities.QuestionRequest{}, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidCount, gr.Count, f.maxCount)
	}

	return entities.QuestionRequest{
		ExamType:   examType,
		Difficulty: difficulty,
		Count:      gr.Count,
		Language:   gr.Language,
	}, nil
}

// saveAsked persists the asked set. Failures are logged; the flow keeps its in-memory state.
// Saving is skipped while the persisted ids are unknown, since Save replaces them.
func (f *QuizFlow) saveAsked(ctx context.Context) {
	if err := f.restoreLocked(ctx); err != nil {
		f.logger.Warn("skipping asked question ids checkpoint", zap.Error(err))
		return
	}
	if err := f.asked.Save(ctx, f.userID, f.store.AskedQuestionIDs()); err != nil {
		f.logger.Error("failed to save asked question ids", zap.Error(err))
	}
}

func (f *QuizFlow) view() QuizView {
	snap := f.store.Snapshot()

	v := QuizView{
		State:           f.state(),
		Loading:         f.generating,
		Total:           len(snap.Questions),
		SelectedOption:  snap.SelectedOption,
		IsSubmitted:     snap.IsSubmitted,
		ShowExplanation: snap.ShowExplanation,
		AskedCount:      f.store.AskedCount(),
	}

	q := snap.CurrentQuestion
	if q == nil {
		return v
	}
	v.Position = snap.Position + 1

	qv := &QuestionView{
		ID:         q.ID,
		Question:   q.Question,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Options:    make([]OptionView, len(q.Options)),
	}
	for i, text := range q.Options {
		qv.Options[i] = OptionView{
			Index:     i,
			Text:      text,
			Highlight: highlight(q, i, snap.SelectedOption, snap.IsSubmitted),
		}
	}

	if snap.IsSubmitted {
		correct := q.CorrectOption
		qv.CorrectOption = &correct
	}
	if snap.ShowExplanation {
		qv.Explanation = q.Explanation
	}
	if ok, defined := f.store.IsCorrect(); defined {
		v.IsCorrect = &ok
	}

	v.Question = qv
	return v
}

func highlight(q *entities.Question, index int, selected *int, submitted bool) string {
	isSelected := selected != nil && *selected == index

	if !submitted {
		if isSelected {
			return HighlightSelected
		}
		return HighlightNeutral
	}

	switch {
	case q.IsCorrect(index):
		return HighlightCorrect
	case isSelected:
		return HighlightIncorrect
	default:
		return HighlightDimmed
	}
}
