package entities

import "time"

// AnswerRecord is produced once per submitted question.
type AnswerRecord struct {
	QuestionID     string    `json:"questionId"`
	SelectedOption int       `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewAnswerRecord checks the selection against q and stamps the record.
func NewAnswerRecord(q *Question, selected int) AnswerRecord {
	return AnswerRecord{
		QuestionID:     q.ID,
		SelectedOption: selected,
		IsCorrect:      q.IsCorrect(selected),
		Timestamp:      time.Now(),
	}
}
