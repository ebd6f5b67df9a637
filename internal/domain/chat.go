package domain

// ChatMessage is the provider-agnostic chat turn shape exchanged between the
// handler, prompt assembly, and the Bedrock integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
