package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message senders
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one immutable chat bubble.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps content with a fresh ID and the current time
func NewMessage(content, sender string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}
