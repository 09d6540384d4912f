package agent

import "github.com/sahtech/sahtech-ai-agent/internal/llm"

// Conversation is the append-only, ordered message log for one session.
// Messages are never reordered, edited, or truncated. A Conversation is
// owned by a single session and is not safe for concurrent use.
type Conversation struct {
	messages []llm.Message
}

// NewConversation returns a Conversation seeded with the given system
// instruction.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []llm.Message{{Role: "system", Content: systemPrompt}},
	}
}

// Append adds a message to the end of the log.
func (c *Conversation) Append(role, content string) {
	c.messages = append(c.messages, llm.Message{Role: role, Content: content})
}

// Snapshot returns a copy of the full ordered message sequence for
// submission to the model.
func (c *Conversation) Snapshot() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	return len(c.messages)
}
