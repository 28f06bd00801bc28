package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one (role, text) unit of a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}
