package transcript

// Role identifies the sender of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolInvocation is a model-issued request to call a tool instead of answering.
// Arguments is the raw JSON text as produced by the model.
type ToolInvocation struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single transcript entry.
//
// Content is nil when the model produced no text (typically alongside an
// invocation). ToolName and ToolCallID are only set on RoleTool messages.
type Message struct {
	Role           Role            `json:"role"`
	Content        *string         `json:"content"`
	ToolInvocation *ToolInvocation `json:"tool_invocation,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolCallID     string          `json:"tool_call_id,omitempty"`
}

// Text returns a pointer to a copy of s, for building messages inline.
func Text(s string) *string { return &s }

// NewMessage creates a plain text message.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: Text(content)}
}

// NewToolResult creates the tool message answering inv.
func NewToolResult(inv ToolInvocation, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    Text(content),
		ToolName:   inv.Name,
		ToolCallID: inv.ID,
	}
}

// ContentString returns the message text, or "" when Content is nil.
func (m Message) ContentString() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// HasInvocation reports whether the message carries a tool invocation.
func (m Message) HasInvocation() bool {
	return m.ToolInvocation != nil && m.ToolInvocation.Name != ""
}

// clone returns a deep copy so callers can't mutate shared pointers.
func (m Message) clone() Message {
	out := m
	if m.Content != nil {
		out.Content = Text(*m.Content)
	}
	if m.ToolInvocation != nil {
		inv := *m.ToolInvocation
		out.ToolInvocation = &inv
	}
	return out
}
