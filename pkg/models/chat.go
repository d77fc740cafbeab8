package models

// ChatRole tags the author of a conversation message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the authoring conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"    validate:"required,oneof=user assistant"`
	Content string   `json:"content" validate:"required"`
}

// AssistantReply is the interpreted output of one authoring turn. Definition
// carries the candidate graph; when the model omits it, the previously-known
// definition is carried forward unchanged.
type AssistantReply struct {
	Text              string      `json:"text"`
	Definition        *Definition `json:"definition,omitempty"`
	Actions           []string    `json:"actions,omitempty"`
	FollowUpQuestions []string    `json:"followUpQuestions,omitempty"`
	FollowUpOptions   []string    `json:"followUpOptions,omitempty"`
}
