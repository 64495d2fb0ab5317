package entities

import (
	"errors"
	"fmt"
	"strings"
)

// OptionsPerQuestion is the number of answer options every question carries.
const OptionsPerQuestion = 4

var (
	ErrUnknownExamType   = errors.New("unknown exam type")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrInvalidQuestion   = errors.New("invalid question")
)

// ExamType is the competitive exam a question batch is prepared for.
type ExamType string

const (
	ExamUPSC    ExamType = "UPSC"
	ExamPSC     ExamType = "PSC"
	ExamSSC     ExamType = "SSC"
	ExamBanking ExamType = "Banking"
)

// ExamTypes lists supported exam types in display order.
var ExamTypes = []ExamType{ExamUPSC, ExamPSC, ExamSSC, ExamBanking}

// ParseExamType matches s case-insensitively against the supported exam types.
func ParseExamType(s string) (ExamType, error) {
	for _, et := range ExamTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(et)) {
			return et, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExamType, s)
}

// Difficulty is the requested hardness of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists supported difficulties from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty matches s case-insensitively against the supported difficulties.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// Question is a single multiple-choice item produced by the question provider.
// It is treated as immutable once it is part of a batch.
type Question struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correctOption"`
	Explanation   string     `json:"explanation"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
}

// Validate checks the structural invariants of a question.
func (q *Question) Validate() error {
	switch {
	case strings.TrimSpace(q.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidQuestion)
	case strings.TrimSpace(q.Question) == "":
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	case len(q.Options) != OptionsPerQuestion:
		return fmt.Errorf("%w: expected %d options, got %d", ErrInvalidQuestion, OptionsPerQuestion, len(q.Options))
	case q.CorrectOption < 0 || q.CorrectOption >= len(q.Options):
		return fmt.Errorf("%w: correct option %d out of range", ErrInvalidQuestion, q.CorrectOption)
	}
	return nil
}

// ValidOption reports whether index addresses one of the question's options.
func (q *Question) ValidOption(index int) bool {
	return index >= 0 && index < len(q.Options)
}

// IsCorrect reports whether the given option index is the authoritative answer.
func (q *Question) IsCorrect(index int) bool {
	return index == q.CorrectOption
}

// QuestionRequest asks the question provider for a new batch.
type QuestionRequest struct {
	ExamType         ExamType   `json:"examType"`
	Difficulty       Difficulty `json:"difficulty"`
	Count            int        `json:"count"`
	AskedQuestionIDs []string   `json:"askedQuestionIds"`
	Language         string     `json:"language,omitempty"`
}
