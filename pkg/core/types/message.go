package types

import (
	"fmt"
	"strings"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role/content pair in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Conversation is an ordered, chronological list of messages.
type Conversation []Message

// Clone returns a copy that shares no backing array with c.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return Conversation{}
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// HasSystemPrefix reports whether the first message is a system message.
func (c Conversation) HasSystemPrefix() bool {
	return len(c) > 0 && c[0].Role == RoleSystem
}

// Validate checks roles and the system message placement: at most one system
// message, and only in first position.
func (c Conversation) Validate() error {
	for i, m := range c {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
		if m.Role == RoleSystem && i != 0 {
			return fmt.Errorf("message %d: system message must be first", i)
		}
	}
	return nil
}

// LastAssistantText returns the content of the most recent assistant message.
func (c Conversation) LastAssistantText() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleAssistant {
			return strings.TrimSpace(c[i].Content)
		}
	}
	return ""
}
