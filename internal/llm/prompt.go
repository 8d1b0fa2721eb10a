package llm

import "errors"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full input to a completion call.
type Prompt struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// NewPrompt builds a single-turn prompt.
func NewPrompt(system, user string) *Prompt {
	return &Prompt{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	}
}

// Validate rejects prompts no provider can send.
func (p *Prompt) Validate() error {
	if p == nil || len(p.Messages) == 0 {
		return errors.New("prompt has no messages")
	}
	return nil
}

// Chars is the total prompt size in bytes, system prompt included.
func (p *Prompt) Chars() int {
	n := len(p.SystemPrompt)
	for _, m := range p.Messages {
		n += len(m.Content)
	}
	return n
}
