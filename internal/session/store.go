package session

import (
	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// Store holds the question/answer state of one user session.
// It performs no I/O and is not safe for concurrent use; its owner serialises access.
type Store struct {
	questions []entities.Question
	current   *entities.Question
	position  int // index of current in questions, -1 when current is not part of the batch

	selected        int
	hasSelected     bool
	isSubmitted     bool
	showExplanation bool

	asked *AskedSet
}

// Snapshot is a read-only copy of the store state.
type Snapshot struct {
	Questions        []entities.Question `json:"questions"`
	CurrentQuestion  *entities.Question  `json:"currentQuestion"`
	Position         int                 `json:"position"`
	SelectedOption   *int                `json:"selectedOption"`
	IsSubmitted      bool                `json:"isSubmitted"`
	ShowExplanation  bool                `json:"showExplanation"`
	AskedQuestionIDs []string            `json:"askedQuestionIds"`
}

// NewStore creates an empty store remembering at most askedLimit asked ids.
func NewStore(askedLimit int) *Store {
	return &Store{
		position: -1,
		asked:    NewAskedSet(askedLimit),
	}
}

// SetQuestions replaces the current batch. The current question is left untouched;
// callers pick the first question to display themselves.
func (s *Store) SetQuestions(batch []entities.Question) {
	if len(batch) == 0 {
		return
	}

	s.questions = make([]entities.Question, len(batch))
	copy(s.questions, batch)
	s.position = s.positionOf(s.current)
}

// SetCurrentQuestion displays q (nil clears it) and resets the per-question state.
func (s *Store) SetCurrentQuestion(q *entities.Question) {
	if q == nil {
		s.current = nil
		s.position = -1
	} else {
		cp := *q
		s.current = &cp
		s.position = s.positionOf(s.current)
	}
	s.resetAnswerState()
}

// SelectOption records the user's pick. Indexes outside the current question's options are ignored.
func (s *Store) SelectOption(index int) {
	if s.current == nil || !s.current.ValidOption(index) {
		return
	}
	s.selected = index
	s.hasSelected = true
}

// SubmitAnswer marks the current question as answered and reveals the explanation.
func (s *Store) SubmitAnswer() {
	if s.current == nil {
		return
	}
	s.isSubmitted = true
	s.showExplanation = true
}

// NextQuestion moves to the question after the current one by position,
// clearing the current question when the batch is exhausted.
func (s *Store) NextQuestion() {
	next := s.position + 1
	if s.current == nil || s.position < 0 || next >= len(s.questions) {
		s.SetCurrentQuestion(nil)
		return
	}

	cp := s.questions[next]
	s.current = &cp
	s.position = next
	s.resetAnswerState()
}

// AddAskedQuestionID remembers id so it is excluded from future batches.
func (s *Store) AddAskedQuestionID(id string) bool {
	return s.asked.Add(id)
}

// ClearAskedQuestionIDs forgets every asked id.
func (s *Store) ClearAskedQuestionIDs() {
	s.asked.Clear()
}

// LoadAskedQuestionIDs restores persisted asked ids, oldest first.
func (s *Store) LoadAskedQuestionIDs(ids []string) {
	for _, id := range ids {
		s.asked.Add(id)
	}
}

// WasAsked reports whether id is in the exclusion list.
func (s *Store) WasAsked(id string) bool {
	return s.asked.Contains(id)
}

// AskedCount returns the size of the exclusion list.
func (s *Store) AskedCount() int {
	return s.asked.Len()
}

// AskedQuestionIDs returns the exclusion list sent to the question provider.
func (s *Store) AskedQuestionIDs() []string {
	return s.asked.IDs()
}

// CurrentQuestion returns the displayed question or nil.
func (s *Store) CurrentQuestion() *entities.Question {
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// SelectedOption returns the pending selection.
func (s *Store) SelectedOption() (int, bool) {
	return s.selected, s.hasSelected
}

// IsSubmitted reports whether the current question has been answered.
func (s *Store) IsSubmitted() bool {
	return s.isSubmitted
}

// ShowExplanation reports whether the explanation is visible.
func (s *Store) ShowExplanation() bool {
	return s.showExplanation
}

// IsCorrect reports the correctness of the submitted answer.
// The second value is false until an answer with a selection has been submitted.
func (s *Store) IsCorrect() (bool, bool) {
	if s.current == nil || !s.isSubmitted || !s.hasSelected {
		return false, false
	}
	return s.current.IsCorrect(s.selected), true
}

// Snapshot copies the store state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Questions:        make([]entities.Question, len(s.questions)),
		CurrentQuestion:  s.CurrentQuestion(),
		Position:         s.position,
		IsSubmitted:      s.isSubmitted,
		ShowExplanation:  s.showExplanation,
		AskedQuestionIDs: s.asked.IDs(),
	}
	copy(snap.Questions, s.questions)

	if s.hasSelected {
		sel := s.selected
		snap.SelectedOption = &sel
	}

	return snap
}

func (s *Store) resetAnswerState() {
	s.selected = 0
	s.hasSelected = false
	s.isSubmitted = false
	s.showExplanation = false
}

// positionOf locates q in the batch. Ids are not unique across batches,
// so the prompt is compared as well.
func (s *Store) positionOf(q *entities.Question) int {
	if q == nil {
		return -1
	}
	for i := range s.questions {
		if s.questions[i].ID == q.ID && s.questions[i].Question == q.Question {
			return i
		}
	}
	return -1
}
