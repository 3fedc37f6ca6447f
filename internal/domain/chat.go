package domain

import "time"

// ChatKind classifies chat messages.
type ChatKind string

const (
	ChatUser      ChatKind = "user"
	ChatSystem    ChatKind = "system"
	ChatBroadcast ChatKind = "broadcast"
	ChatPrivate   ChatKind = "private"
)

// SystemSender is the sender name used for join/leave notices.
const SystemSender = "SYSTEM"

// ChatMessage is one entry of the chat history.
type ChatMessage struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Kind      ChatKind  `json:"kind"`
}

// NewSystemMessage builds a join/leave style notice.
func NewSystemMessage(content string, at time.Time) ChatMessage {
	return ChatMessage{
		Sender:    SystemSender,
		Content:   content,
		Timestamp: at,
		Kind:      ChatSystem,
	}
}

// Display renders the message the way chat clients print it.
func (m ChatMessage) Display() string {
	ts := m.Timestamp.Format("15:04:05")
	switch m.Kind {
	case ChatSystem:
		return "[" + ts + "] SYSTEM: " + m.Content
	case ChatBroadcast:
		return "[" + ts + "] [BROADCAST] " + m.Sender + ": " + m.Content
	default:
		return "[" + ts + "] " + m.Sender + ": " + m.Content
	}
}
