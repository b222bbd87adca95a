package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks messages typed by the person using the studio.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the Midori persona.
	RoleAssistant Role = "assistant"
)

// ChatMessage is one immutable entry in a conversation transcript.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RefinementResult is what the refinement step produces for one request.
type RefinementResult struct {
	Summary        string   `json:"summary"`
	RefinedPrompt  string   `json:"refinedPrompt"`
	Clarifications []string `json:"clarifications,omitempty"`
}

// Generation is the output of one code generation call.
type Generation struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	TokenUsage  int    `json:"tokenUsage"`
}
