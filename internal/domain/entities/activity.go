package entities

import "time"

// Action names recorded by the activity tracker.
const (
	ActionQuestionGenerated = "question_generated"
	ActionAnswerSubmitted   = "answer_submitted"
	ActionQuestionAdvanced  = "question_advanced"
	ActionAskedCleared      = "asked_cleared"
)

// Activity is a discrete user action recorded for analytics.
type Activity struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewActivity creates an activity stamped with the current time.
func NewActivity(userID, action string, details map[string]any) *Activity {
	return &Activity{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	}
}
