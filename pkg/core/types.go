package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleActivity  Role = "activity"
	RoleReasoning Role = "reasoning"
)

// Validate checks that the role is one of the allowed values.
func (r Role) Validate() error {
	switch r {
	case RoleDeveloper, RoleSystem, RoleUser, RoleAssistant, RoleTool, RoleActivity, RoleReasoning:
		return nil
	default:
		return NewValidationError("Message", "role", fmt.Errorf("invalid role %q", string(r)))
	}
}

// PartType identifies the kind of a content part.
type PartType string

const (
	PartTypeText     PartType = "text"
	PartTypeImage    PartType = "image"
	PartTypeAudio    PartType = "audio"
	PartTypeVideo    PartType = "video"
	PartTypeDocument PartType = "document"

	// PartTypeBinary is the legacy single-field binary content kept for
	// compatibility with older producers. The binary codec upgrades it to a
	// document part on encode.
	PartTypeBinary PartType = "binary"
)

// PartSource locates the payload of a non-text content part. Exactly one of
// Data (base64 inline bytes) or URL must be set. Inline data requires a
// mime type; for URL sources it is optional.
type PartSource struct {
	Data     string  `json:"data,omitempty"`
	URL      string  `json:"url,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
}

// Validate checks the two-variant invariant of the source.
func (s *PartSource) Validate() error {
	switch {
	case s.Data != "" && s.URL != "":
		return NewValidationError("PartSource", "data", errors.New("data and url are mutually exclusive"))
	case s.Data != "":
		if s.MimeType == nil || *s.MimeType == "" {
			return NewValidationError("PartSource", "mimeType", errors.New("inline data requires a mime type"))
		}
		return nil
	case s.URL != "":
		return nil
	default:
		return NewValidationError("PartSource", "data", errors.New("one of data or url is required"))
	}
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type   PartType    `json:"type"`
	Text   string      `json:"text,omitempty"`
	Source *PartSource `json:"source,omitempty"`
}

// Validate checks the part against its declared type.
func (p *ContentPart) Validate() error {
	switch p.Type {
	case PartTypeText:
		if p.Text == "" {
			return NewValidationError("ContentPart", "text", errors.New("text part requires text"))
		}
		return nil
	case PartTypeImage, PartTypeAudio, PartTypeVideo, PartTypeDocument, PartTypeBinary:
		if p.Source == nil {
			return NewValidationError("ContentPart", "source", errors.New("binary part requires a source"))
		}
		return p.Source.Validate()
	default:
		return NewValidationError("ContentPart", "type", fmt.Errorf("unknown part type %q", string(p.Type)))
	}
}

// MessageContent is either a plain string or an ordered list of typed parts.
// The zero value marshals as an empty string.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// TextContent builds plain-string content.
func TextContent(text string) *MessageContent {
	return &MessageContent{Text: text}
}

// PartsContent builds multimodal content from ordered parts.
func PartsContent(parts ...ContentPart) *MessageContent {
	return &MessageContent{Parts: parts}
}

// IsText reports whether the content is the plain-string form.
func (c *MessageContent) IsText() bool {
	return c.Parts == nil
}

// MarshalJSON emits a JSON string for plain content and an array of parts
// otherwise.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON accepts either form.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

// Function is the name and accumulated argument text of a function call.
// Arguments is JSON text built up incrementally by TOOL_CALL_ARGS deltas and
// must not be re-parsed until the tool call has ended.
type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a structured function invocation requested by the agent,
// modelled after OpenAI tool calls.
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Validate checks the tool call structure.
func (t *ToolCall) Validate() error {
	if t.ID == "" {
		return NewValidationError("ToolCall", "id", errors.New("id is required"))
	}
	if t.Type != "function" {
		return NewValidationError("ToolCall", "type", fmt.Errorf("invalid type %q", t.Type))
	}
	if t.Function.Name == "" {
		return NewValidationError("ToolCall", "function.name", errors.New("name is required"))
	}
	return nil
}

// Message is one entry of a thread's conversation history.
type Message struct {
	ID      string          `json:"id"`
	Role    Role            `json:"role"`
	Content *MessageContent `json:"content,omitempty"`
	Name    *string         `json:"name,omitempty"`

	// ToolCalls is populated on assistant messages only.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID *string `json:"toolCallId,omitempty"`
	// ActivityType tags activity-role messages with their payload kind.
	ActivityType *string `json:"activityType,omitempty"`
}

// Validate checks the message against its role.
func (m *Message) Validate() error {
	if m.ID == "" {
		return NewValidationError("Message", "id", errors.New("id is required"))
	}
	if err := m.Role.Validate(); err != nil {
		return err
	}
	if m.Content != nil && !m.Content.IsText() {
		for i := range m.Content.Parts {
			if err := m.Content.Parts[i].Validate(); err != nil {
				return fmt.Errorf("content part %d: %w", i, err)
			}
		}
	}
	switch m.Role {
	case RoleAssistant:
		for i := range m.ToolCalls {
			if err := m.ToolCalls[i].Validate(); err != nil {
				return fmt.Errorf("tool call %d: %w", i, err)
			}
		}
	case RoleTool:
		if m.ToolCallID == nil || *m.ToolCallID == "" {
			return NewValidationError("Message", "toolCallId", errors.New("tool message requires toolCallId"))
		}
	default:
		if len(m.ToolCalls) > 0 {
			return NewValidationError("Message", "toolCalls", fmt.Errorf("role %q cannot carry tool calls", string(m.Role)))
		}
	}
	return nil
}

// TextOf returns the plain-text content of the message, or "" when the
// message has no content or only non-text parts.
func (m *Message) TextOf() string {
	if m.Content == nil {
		return ""
	}
	if m.Content.IsText() {
		return m.Content.Text
	}
	var out string
	for _, p := range m.Content.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}

// State is an arbitrary JSON value owned by the run's thread.
type State = any

// Context is one piece of additional context handed to the agent.
type Context struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Tool is a tool definition offered to the agent. Parameters holds the JSON
// Schema for the tool's arguments.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// RunAgentInput is the immutable request that starts a run.
type RunAgentInput struct {
	ThreadID       string    `json:"threadId"`
	RunID          string    `json:"runId"`
	ParentRunID    *string   `json:"parentRunId,omitempty"`
	State          State     `json:"state"`
	Messages       []Message `json:"messages"`
	Tools          []Tool    `json:"tools"`
	Context        []Context `json:"context"`
	ForwardedProps any       `json:"forwardedProps"`
}

// Validate checks the identifiers that scope the run.
func (in *RunAgentInput) Validate() error {
	if in.ThreadID == "" {
		return NewValidationError("RunAgentInput", "threadId", errors.New("threadId is required"))
	}
	if in.RunID == "" {
		return NewValidationError("RunAgentInput", "runId", errors.New("runId is required"))
	}
	for i := range in.Messages {
		if err := in.Messages[i].Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// GenerateMessageID returns a unique message identifier.
func GenerateMessageID() string {
	return "msg_" + uuid.NewString()
}

// GenerateToolCallID returns a unique tool call identifier.
func GenerateToolCallID() string {
	return "call_" + uuid.NewString()
}

// GenerateRunID returns a unique run identifier.
func GenerateRunID() string {
	return "run_" + uuid.NewString()
}

// GenerateThreadID returns a unique thread identifier.
func GenerateThreadID() string {
	return "thread_" + uuid.NewString()
}
