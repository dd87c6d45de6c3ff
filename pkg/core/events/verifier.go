package events

import "fmt"

// ViolationRule identifies which sequencing rule an event broke. The set is
// closed so callers can switch on it rather than matching error text.
type ViolationRule string

const (
	RuleRunAlreadyErrored      ViolationRule = "RUN_ALREADY_ERRORED"
	RuleRunAlreadyFinished     ViolationRule = "RUN_ALREADY_FINISHED"
	RuleTextMessageNotClosed   ViolationRule = "TEXT_MESSAGE_NOT_CLOSED"
	RuleToolCallNotClosed      ViolationRule = "TOOL_CALL_NOT_CLOSED"
	RuleToolCallAlreadyActive  ViolationRule = "TOOL_CALL_ALREADY_ACTIVE"
	RuleFirstEventMustStartRun ViolationRule = "FIRST_EVENT_MUST_START_RUN"
	RuleRunAlreadyStarted      ViolationRule = "RUN_ALREADY_STARTED"
	RuleTextMessageNotOpen     ViolationRule = "TEXT_MESSAGE_NOT_OPEN"
	RuleTextMessageIDMismatch  ViolationRule = "TEXT_MESSAGE_ID_MISMATCH"
	RuleToolCallNotOpen        ViolationRule = "TOOL_CALL_NOT_OPEN"
	RuleToolCallIDMismatch     ViolationRule = "TOOL_CALL_ID_MISMATCH"
	RuleStepAlreadyActive      ViolationRule = "STEP_ALREADY_ACTIVE"
	RuleStepNotActive          ViolationRule = "STEP_NOT_ACTIVE"
	RuleStepsStillActive       ViolationRule = "STEPS_STILL_ACTIVE"
	RuleThinkingAlreadyActive  ViolationRule = "THINKING_ALREADY_ACTIVE"
	RuleThinkingNotActive      ViolationRule = "THINKING_NOT_ACTIVE"
	RuleThinkingMessageActive  ViolationRule = "THINKING_MESSAGE_ACTIVE"
	RuleThinkingMessageNotOpen ViolationRule = "THINKING_MESSAGE_NOT_OPEN"
)

// ProtocolViolation reports a sequencing rule broken by an event. It is fatal
// to the run it occurred in.
type ProtocolViolation struct {
	EventType     EventType     `json:"eventType"`
	Rule          ViolationRule `json:"rule"`
	ConflictingID string        `json:"conflictingId,omitempty"`
	ActiveID      string        `json:"activeId,omitempty"`
	Message       string        `json:"message"`
}

func (v *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation [%s]: %s", v.Rule, v.Message)
}

// SequenceVerifier checks that events for a single run arrive in a legal
// order. It is not safe for concurrent use; create one verifier per run and
// feed it every event in arrival order.
//
// State is mutated only when an event is accepted, so a rejected event leaves
// the verifier exactly as it was.
type SequenceVerifier struct {
	activeMessageID       string
	activeToolCallID      string
	runFinished           bool
	runError              bool
	firstEventSeen        bool
	activeSteps           map[string]struct{}
	thinkingActive        bool
	thinkingMessageActive bool
}

// NewSequenceVerifier creates a verifier for a fresh run.
func NewSequenceVerifier() *SequenceVerifier {
	return &SequenceVerifier{
		activeSteps: make(map[string]struct{}),
	}
}

// Verify checks the event against the current run state and, if it is
// accepted, applies its state transition. The returned error is always a
// *ProtocolViolation when non-nil.
//
// The checks run in a fixed order: terminated-run checks first, then open
// text message, then open tool call, then run lifecycle, then the
// type-specific transition.
func (v *SequenceVerifier) Verify(event Event) error {
	eventType := event.Type()

	if v.runError {
		return &ProtocolViolation{
			EventType: eventType,
			Rule:      RuleRunAlreadyErrored,
			Message:   fmt.Sprintf("cannot send event type '%s': the run has already errored and no further events are allowed", eventType),
		}
	}

	if v.runFinished && eventType != EventTypeRunError {
		return &ProtocolViolation{
			EventType: eventType,
			Rule:      RuleRunAlreadyFinished,
			Message:   fmt.Sprintf("cannot send event type '%s': the run has already finished, only RUN_ERROR is allowed afterwards", eventType),
		}
	}

	if v.activeMessageID != "" {
		switch eventType {
		case EventTypeTextMessageContent, EventTypeTextMessageEnd, EventTypeRaw:
			// allowed while a text message is open
		default:
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleTextMessageNotClosed,
				ActiveID:  v.activeMessageID,
				Message:   fmt.Sprintf("cannot send event type '%s' while a text message is in progress: send TEXT_MESSAGE_END for message '%s' first", eventType, v.activeMessageID),
			}
		}
	}

	if v.activeToolCallID != "" {
		switch eventType {
		case EventTypeToolCallArgs, EventTypeToolCallEnd, EventTypeRaw:
			// allowed while a tool call is open
		case EventTypeToolCallStart:
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleToolCallAlreadyActive,
				ActiveID:  v.activeToolCallID,
				Message:   fmt.Sprintf("cannot start a new tool call: tool call '%s' is already in progress", v.activeToolCallID),
			}
		default:
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleToolCallNotClosed,
				ActiveID:  v.activeToolCallID,
				Message:   fmt.Sprintf("cannot send event type '%s' while a tool call is in progress: send TOOL_CALL_END for tool call '%s' first", eventType, v.activeToolCallID),
			}
		}
	}

	if !v.firstEventSeen {
		if eventType != EventTypeRunStarted && eventType != EventTypeRunError {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleFirstEventMustStartRun,
				Message:   fmt.Sprintf("first event must be RUN_STARTED or RUN_ERROR, got '%s'", eventType),
			}
		}
	} else if eventType == EventTypeRunStarted {
		return &ProtocolViolation{
			EventType: eventType,
			Rule:      RuleRunAlreadyStarted,
			Message:   "cannot send RUN_STARTED: the run has already started",
		}
	}

	if violation := v.applyTransition(event, eventType); violation != nil {
		return violation
	}

	v.firstEventSeen = true
	return nil
}

// applyTransition runs the type-specific check for the event and mutates the
// verifier state when the event is legal.
func (v *SequenceVerifier) applyTransition(event Event, eventType EventType) *ProtocolViolation {
	switch eventType {
	case EventTypeRunStarted:
		// handled by the lifecycle checks above

	case EventTypeRunFinished:
		if len(v.activeSteps) > 0 {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleStepsStillActive,
				Message:   fmt.Sprintf("cannot send RUN_FINISHED while %d step(s) are still active: finish all steps first", len(v.activeSteps)),
			}
		}
		v.runFinished = true

	case EventTypeRunError:
		v.runError = true

	case EventTypeStepStarted:
		stepEvent := event.(*StepStartedEvent)
		if _, active := v.activeSteps[stepEvent.StepName]; active {
			return &ProtocolViolation{
				EventType:     eventType,
				Rule:          RuleStepAlreadyActive,
				ConflictingID: stepEvent.StepName,
				Message:       fmt.Sprintf("cannot send STEP_STARTED for step '%s': the step is already active", stepEvent.StepName),
			}
		}
		v.activeSteps[stepEvent.StepName] = struct{}{}

	case EventTypeStepFinished:
		stepEvent := event.(*StepFinishedEvent)
		if _, active := v.activeSteps[stepEvent.StepName]; !active {
			return &ProtocolViolation{
				EventType:     eventType,
				Rule:          RuleStepNotActive,
				ConflictingID: stepEvent.StepName,
				Message:       fmt.Sprintf("cannot send STEP_FINISHED for step '%s': no such step was started", stepEvent.StepName),
			}
		}
		delete(v.activeSteps, stepEvent.StepName)

	case EventTypeTextMessageStart:
		msgEvent := event.(*TextMessageStartEvent)
		v.activeMessageID = msgEvent.MessageID

	case EventTypeTextMessageContent:
		msgEvent := event.(*TextMessageContentEvent)
		if violation := v.checkMessageID(eventType, msgEvent.MessageID); violation != nil {
			return violation
		}

	case EventTypeTextMessageEnd:
		msgEvent := event.(*TextMessageEndEvent)
		if violation := v.checkMessageID(eventType, msgEvent.MessageID); violation != nil {
			return violation
		}
		v.activeMessageID = ""

	case EventTypeToolCallStart:
		toolEvent := event.(*ToolCallStartEvent)
		// Also guarded by the open-tool-call check above.
		if v.activeToolCallID != "" {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleToolCallAlreadyActive,
				ActiveID:  v.activeToolCallID,
				Message:   fmt.Sprintf("cannot start a new tool call: tool call '%s' is already in progress", v.activeToolCallID),
			}
		}
		v.activeToolCallID = toolEvent.ToolCallID

	case EventTypeToolCallArgs:
		toolEvent := event.(*ToolCallArgsEvent)
		if violation := v.checkToolCallID(eventType, toolEvent.ToolCallID); violation != nil {
			return violation
		}

	case EventTypeToolCallEnd:
		toolEvent := event.(*ToolCallEndEvent)
		if violation := v.checkToolCallID(eventType, toolEvent.ToolCallID); violation != nil {
			return violation
		}
		v.activeToolCallID = ""

	case EventTypeThinkingStart:
		if v.thinkingActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingAlreadyActive,
				Message:   "cannot send THINKING_START: a thinking step is already in progress",
			}
		}
		v.thinkingActive = true

	case EventTypeThinkingEnd:
		if !v.thinkingActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingNotActive,
				Message:   "cannot send THINKING_END: no thinking step is in progress",
			}
		}
		if v.thinkingMessageActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingMessageActive,
				Message:   "cannot send THINKING_END while a thinking text message is in progress: send THINKING_TEXT_MESSAGE_END first",
			}
		}
		v.thinkingActive = false

	case EventTypeThinkingTextMessageStart:
		if !v.thinkingActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingNotActive,
				Message:   "cannot send THINKING_TEXT_MESSAGE_START: no thinking step is in progress",
			}
		}
		if v.thinkingMessageActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingMessageActive,
				Message:   "cannot send THINKING_TEXT_MESSAGE_START: a thinking text message is already in progress",
			}
		}
		v.thinkingMessageActive = true

	case EventTypeThinkingTextMessageContent:
		if !v.thinkingMessageActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingMessageNotOpen,
				Message:   "cannot send THINKING_TEXT_MESSAGE_CONTENT: no thinking text message is in progress",
			}
		}

	case EventTypeThinkingTextMessageEnd:
		if !v.thinkingMessageActive {
			return &ProtocolViolation{
				EventType: eventType,
				Rule:      RuleThinkingMessageNotOpen,
				Message:   "cannot send THINKING_TEXT_MESSAGE_END: no thinking text message is in progress",
			}
		}
		v.thinkingMessageActive = false

	default:
		// Chunk, result, state, activity, raw and custom events carry no
		// sequencing state of their own.
	}

	return nil
}

func (v *SequenceVerifier) checkMessageID(eventType EventType, messageID string) *ProtocolViolation {
	if v.activeMessageID == "" {
		return &ProtocolViolation{
			EventType:     eventType,
			Rule:          RuleTextMessageNotOpen,
			ConflictingID: messageID,
			Message:       fmt.Sprintf("cannot send event type '%s': no text message is in progress, send TEXT_MESSAGE_START first", eventType),
		}
	}
	if messageID != v.activeMessageID {
		return &ProtocolViolation{
			EventType:     eventType,
			Rule:          RuleTextMessageIDMismatch,
			ConflictingID: messageID,
			ActiveID:      v.activeMessageID,
			Message:       fmt.Sprintf("message id '%s' does not match the active text message '%s'", messageID, v.activeMessageID),
		}
	}
	return nil
}

func (v *SequenceVerifier) checkToolCallID(eventType EventType, toolCallID string) *ProtocolViolation {
	if v.activeToolCallID == "" {
		return &ProtocolViolation{
			EventType:     eventType,
			Rule:          RuleToolCallNotOpen,
			ConflictingID: toolCallID,
			Message:       fmt.Sprintf("cannot send event type '%s': no tool call is in progress, send TOOL_CALL_START first", eventType),
		}
	}
	if toolCallID != v.activeToolCallID {
		return &ProtocolViolation{
			EventType:     eventType,
			Rule:          RuleToolCallIDMismatch,
			ConflictingID: toolCallID,
			ActiveID:      v.activeToolCallID,
			Message:       fmt.Sprintf("tool call id '%s' does not match the active tool call '%s'", toolCallID, v.activeToolCallID),
		}
	}
	return nil
}
