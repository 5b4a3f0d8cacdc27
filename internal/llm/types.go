package llm

// Role is a chat-protocol role, distinct from the simulation roles
// (doctor/patient/assistant/expert) that own the conversation threads.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Content    string
	StopReason string
}
