package llm

// Roles used in completion requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single text turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
