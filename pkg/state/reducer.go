package state

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

var errNoActivityMessage = errors.New("no activity message with this id")

// ThinkingState is the reasoning telemetry of the current run.
type ThinkingState struct {
	Active   bool     `json:"active"`
	Title    *string  `json:"title,omitempty"`
	Buffer   string   `json:"buffer,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// AgentState is the observable output of a run: the conversation so far, the
// shared JSON state, thinking telemetry and the passthrough logs.
type AgentState struct {
	Messages     []core.Message        `json:"messages"`
	State        core.State            `json:"state"`
	Result       any                   `json:"result,omitempty"`
	Thinking     ThinkingState         `json:"thinking"`
	RawEvents    []*events.RawEvent    `json:"rawEvents,omitempty"`
	CustomEvents []*events.CustomEvent `json:"customEvents,omitempty"`
}

// StateErrorHandler receives patch-apply failures. The reducer never stops on
// one; the handler is the only place they surface.
type StateErrorHandler func(err *core.StateApplyError)

// Reducer folds events into AgentState in arrival order. It keeps a small
// amount of cross-event bookkeeping (current run id, last emitted thinking
// buffer per run) and is therefore one-per-stream, like the verifier.
type Reducer struct {
	logger       logrus.FieldLogger
	onStateError StateErrorHandler

	currentRunID string
	lastThinking map[string]string
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithLogger sets the logger used for recovered errors.
func WithLogger(logger logrus.FieldLogger) ReducerOption {
	return func(r *Reducer) {
		r.logger = logger
	}
}

// WithStateErrorHandler sets the handler invoked when a STATE_DELTA or
// ACTIVITY_DELTA patch fails to apply. The default handler logs a warning.
func WithStateErrorHandler(handler StateErrorHandler) ReducerOption {
	return func(r *Reducer) {
		r.onStateError = handler
	}
}

// NewReducer creates a reducer for a single event stream.
func NewReducer(options ...ReducerOption) *Reducer {
	r := &Reducer{
		logger:       logrus.StandardLogger(),
		lastThinking: make(map[string]string),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.onStateError == nil {
		r.onStateError = func(err *core.StateApplyError) {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"op":   err.Op,
				"path": err.Path,
			}).Warn("state patch could not be applied, state unchanged")
		}
	}
	return r
}

// Apply folds one event into the state and returns the next state. The
// second return value reports whether anything observable changed, so callers
// emitting intermediate snapshots can skip lifecycle-only events.
//
// The input state is not mutated; message and log slices are copied before
// modification so earlier snapshots stay valid.
func (r *Reducer) Apply(state AgentState, event events.Event) (AgentState, bool) {
	switch typed := event.(type) {
	case *events.RunStartedEvent:
		r.currentRunID = typed.RunID
		state.Thinking = ThinkingState{}
		return state, true

	case *events.RunFinishedEvent:
		if typed.Result != nil {
			state.Result = typed.Result
			return state, true
		}
		return state, false

	case *events.TextMessageStartEvent:
		role := core.RoleAssistant
		if typed.Role != nil {
			role = core.Role(*typed.Role)
		}
		state.Messages = appendMessage(state.Messages, core.Message{
			ID:      typed.MessageID,
			Role:    role,
			Content: core.TextContent(""),
		})
		return state, true

	case *events.TextMessageContentEvent:
		return r.appendMessageText(state, typed.MessageID, typed.Delta)

	case *events.ToolCallStartEvent:
		return r.startToolCall(state, typed)

	case *events.ToolCallArgsEvent:
		return r.appendToolCallArgs(state, typed)

	case *events.ToolCallResultEvent:
		role := core.RoleTool
		if typed.Role != nil {
			role = core.Role(*typed.Role)
		}
		state.Messages = appendMessage(state.Messages, core.Message{
			ID:         typed.MessageID,
			Role:       role,
			Content:    core.TextContent(typed.Content),
			ToolCallID: &typed.ToolCallID,
		})
		return state, true

	case *events.StateSnapshotEvent:
		state.State = typed.Snapshot
		return state, true

	case *events.StateDeltaEvent:
		patched, err := ApplyPatch(state.State, typed.Delta)
		if err != nil {
			r.reportPatchFailure(err)
			return state, false
		}
		state.State = patched
		return state, true

	case *events.MessagesSnapshotEvent:
		state.Messages = typed.Messages
		return state, true

	case *events.ActivitySnapshotEvent:
		return r.applyActivitySnapshot(state, typed)

	case *events.ActivityDeltaEvent:
		return r.applyActivityDelta(state, typed)

	case *events.ThinkingStartEvent:
		state.Thinking.Active = true
		state.Thinking.Title = typed.Title
		return state, true

	case *events.ThinkingEndEvent:
		state.Thinking.Active = false
		return state, true

	case *events.ThinkingTextMessageStartEvent:
		state.Thinking.Buffer = ""
		return state, false

	case *events.ThinkingTextMessageContentEvent:
		state.Thinking.Buffer += typed.Delta
		return state, true

	case *events.ThinkingTextMessageEndEvent:
		return r.finishThinkingMessage(state)

	case *events.RawEvent:
		state.RawEvents = append(state.RawEvents[:len(state.RawEvents):len(state.RawEvents)], typed)
		return state, true

	case *events.CustomEvent:
		state.CustomEvents = append(state.CustomEvents[:len(state.CustomEvents):len(state.CustomEvents)], typed)
		return state, true

	default:
		// RUN_ERROR, steps, message and tool call terminators, chunk events:
		// no observable state change.
		return state, false
	}
}

// appendMessage appends without sharing the backing array with the input
// slice, so earlier snapshots are unaffected.
func appendMessage(messages []core.Message, message core.Message) []core.Message {
	out := make([]core.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, message)
}

func (r *Reducer) appendMessageText(state AgentState, messageID, delta string) (AgentState, bool) {
	last := len(state.Messages) - 1
	if last < 0 || state.Messages[last].ID != messageID {
		// Should not happen after verification; drop the delta.
		return state, false
	}

	messages := make([]core.Message, len(state.Messages))
	copy(messages, state.Messages)
	text := messages[last].TextOf() + delta
	messages[last].Content = core.TextContent(text)
	state.Messages = messages
	return state, true
}

func (r *Reducer) startToolCall(state AgentState, event *events.ToolCallStartEvent) (AgentState, bool) {
	toolCall := core.ToolCall{
		ID:   event.ToolCallID,
		Type: "function",
		Function: core.Function{
			Name: event.ToolCallName,
		},
	}

	last := len(state.Messages) - 1
	if last >= 0 && event.ParentMessageID != nil && state.Messages[last].ID == *event.ParentMessageID {
		messages := make([]core.Message, len(state.Messages))
		copy(messages, state.Messages)
		calls := messages[last].ToolCalls
		messages[last].ToolCalls = append(calls[:len(calls):len(calls)], toolCall)
		state.Messages = messages
		return state, true
	}

	messageID := event.ToolCallID
	if event.ParentMessageID != nil {
		messageID = *event.ParentMessageID
	}
	state.Messages = appendMessage(state.Messages, core.Message{
		ID:        messageID,
		Role:      core.RoleAssistant,
		ToolCalls: []core.ToolCall{toolCall},
	})
	return state, true
}

func (r *Reducer) appendToolCallArgs(state AgentState, event *events.ToolCallArgsEvent) (AgentState, bool) {
	last := len(state.Messages) - 1
	if last < 0 || len(state.Messages[last].ToolCalls) == 0 {
		return state, false
	}

	lastCall := len(state.Messages[last].ToolCalls) - 1
	if state.Messages[last].ToolCalls[lastCall].ID != event.ToolCallID {
		return state, false
	}

	messages := make([]core.Message, len(state.Messages))
	copy(messages, state.Messages)
	calls := make([]core.ToolCall, len(messages[last].ToolCalls))
	copy(calls, messages[last].ToolCalls)
	calls[lastCall].Function.Arguments += event.Delta
	messages[last].ToolCalls = calls
	state.Messages = messages
	return state, true
}

// applyActivitySnapshot upserts the activity message with the event's id,
// replacing its payload wholesale.
func (r *Reducer) applyActivitySnapshot(state AgentState, event *events.ActivitySnapshotEvent) (AgentState, bool) {
	content, err := json.Marshal(event.Content)
	if err != nil {
		r.onStateError(&core.StateApplyError{Op: "snapshot", Path: event.MessageID, Err: err})
		return state, false
	}

	message := core.Message{
		ID:           event.MessageID,
		Role:         core.RoleActivity,
		Content:      core.TextContent(string(content)),
		ActivityType: &event.ActivityType,
	}

	for i := range state.Messages {
		if state.Messages[i].ID == event.MessageID {
			messages := make([]core.Message, len(state.Messages))
			copy(messages, state.Messages)
			messages[i] = message
			state.Messages = messages
			return state, true
		}
	}

	state.Messages = appendMessage(state.Messages, message)
	return state, true
}

// applyActivityDelta patches the JSON payload of an existing activity
// message. A missing message or failed patch is recovered like a bad
// STATE_DELTA: the state is unchanged and the error handler is told.
func (r *Reducer) applyActivityDelta(state AgentState, event *events.ActivityDeltaEvent) (AgentState, bool) {
	index := -1
	for i := range state.Messages {
		if state.Messages[i].ID == event.MessageID && state.Messages[i].Role == core.RoleActivity {
			index = i
			break
		}
	}
	if index < 0 {
		r.reportPatchFailure(&core.StateApplyError{
			Op:   "delta",
			Path: event.MessageID,
			Err:  errNoActivityMessage,
		})
		return state, false
	}

	var payload any
	if err := json.Unmarshal([]byte(state.Messages[index].TextOf()), &payload); err != nil {
		r.onStateError(&core.StateApplyError{Op: "delta", Path: event.MessageID, Err: err})
		return state, false
	}

	patched, err := ApplyPatch(payload, event.Delta)
	if err != nil {
		r.reportPatchFailure(err)
		return state, false
	}

	content, err := json.Marshal(patched)
	if err != nil {
		r.onStateError(&core.StateApplyError{Op: "delta", Path: event.MessageID, Err: err})
		return state, false
	}

	messages := make([]core.Message, len(state.Messages))
	copy(messages, state.Messages)
	messages[index].Content = core.TextContent(string(content))
	messages[index].ActivityType = &event.ActivityType
	state.Messages = messages
	return state, true
}

// finishThinkingMessage moves the buffer into the emitted list unless the
// same run already emitted this text. Upstream agents resend accumulated
// thinking across turns, so a buffer equal to, or extending, the previously
// emitted one for the same run is suppressed.
func (r *Reducer) finishThinkingMessage(state AgentState) (AgentState, bool) {
	buffer := state.Thinking.Buffer
	state.Thinking.Buffer = ""
	if buffer == "" {
		return state, false
	}

	if last, ok := r.lastThinking[r.currentRunID]; ok && last != "" && strings.HasPrefix(buffer, last) {
		return state, false
	}
	r.lastThinking[r.currentRunID] = buffer

	existing := state.Thinking.Messages
	state.Thinking.Messages = append(existing[:len(existing):len(existing)], buffer)
	return state, true
}

// reportPatchFailure hands a patch error to the state error handler.
// ApplyPatch already names the failing operation; anything else is wrapped
// as-is.
func (r *Reducer) reportPatchFailure(err error) {
	var applyErr *core.StateApplyError
	if !errors.As(err, &applyErr) {
		applyErr = &core.StateApplyError{Err: err}
	}
	r.onStateError(applyErr)
}
