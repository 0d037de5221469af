package model

import "time"

// MessageRole is the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a user visible line of the conversation.
type Message struct {
	Role MessageRole
	Text string
	At   time.Time
}
