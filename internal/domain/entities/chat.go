package entities

import "time"

// ChatMessage is a message published to a chat room.
type ChatMessage struct {
	ID     string    `json:"id"`
	Room   string    `json:"room"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}
