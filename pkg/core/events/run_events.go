package events

import (
	"encoding/json"
	"errors"

	"github.com/agentwire/go-sdk/pkg/core"
)

// RunStartedEvent indicates that an agent run has started. It must be the
// first event of a run.
type RunStartedEvent struct {
	*BaseEvent
	ThreadID    string  `json:"threadId"`
	RunID       string  `json:"runId"`
	ParentRunID *string `json:"parentRunId,omitempty"`
}

// NewRunStartedEvent creates a new run started event
func NewRunStartedEvent(threadID, runID string, options ...RunStartedOption) *RunStartedEvent {
	event := &RunStartedEvent{
		BaseEvent: NewBaseEvent(EventTypeRunStarted),
		ThreadID:  threadID,
		RunID:     runID,
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// RunStartedOption defines options for creating run started events
type RunStartedOption func(*RunStartedEvent)

// WithParentRunID links the run to the run that spawned it.
func WithParentRunID(parentRunID string) RunStartedOption {
	return func(e *RunStartedEvent) {
		e.ParentRunID = &parentRunID
	}
}

// Validate validates the run started event
func (e *RunStartedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ThreadID == "" {
		return core.NewValidationError("RunStartedEvent", "threadId", errors.New("field is required"))
	}

	if e.RunID == "" {
		return core.NewValidationError("RunStartedEvent", "runId", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *RunStartedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RunFinishedEvent indicates that an agent run has finished successfully.
type RunFinishedEvent struct {
	*BaseEvent
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
	Result   any    `json:"result,omitempty"`
}

// NewRunFinishedEvent creates a new run finished event
func NewRunFinishedEvent(threadID, runID string, options ...RunFinishedOption) *RunFinishedEvent {
	event := &RunFinishedEvent{
		BaseEvent: NewBaseEvent(EventTypeRunFinished),
		ThreadID:  threadID,
		RunID:     runID,
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// RunFinishedOption defines options for creating run finished events
type RunFinishedOption func(*RunFinishedEvent)

// WithResult attaches the run's final result value.
func WithResult(result any) RunFinishedOption {
	return func(e *RunFinishedEvent) {
		e.Result = result
	}
}

// Validate validates the run finished event
func (e *RunFinishedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ThreadID == "" {
		return core.NewValidationError("RunFinishedEvent", "threadId", errors.New("field is required"))
	}

	if e.RunID == "" {
		return core.NewValidationError("RunFinishedEvent", "runId", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *RunFinishedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RunErrorEvent indicates that an agent run has terminated with an error.
// It may be sent at any point, including as the very first event of a run.
type RunErrorEvent struct {
	*BaseEvent
	Message string  `json:"message"`
	Code    *string `json:"code,omitempty"`
}

// NewRunErrorEvent creates a new run error event
func NewRunErrorEvent(message string, options ...RunErrorOption) *RunErrorEvent {
	event := &RunErrorEvent{
		BaseEvent: NewBaseEvent(EventTypeRunError),
		Message:   message,
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// RunErrorOption defines options for creating run error events
type RunErrorOption func(*RunErrorEvent)

// WithErrorCode sets the error code for the run error event
func WithErrorCode(code string) RunErrorOption {
	return func(e *RunErrorEvent) {
		e.Code = &code
	}
}

// Validate validates the run error event
func (e *RunErrorEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Message == "" {
		return core.NewValidationError("RunErrorEvent", "message", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *RunErrorEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StepStartedEvent indicates that an agent step has started
type StepStartedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

// NewStepStartedEvent creates a new step started event
func NewStepStartedEvent(stepName string) *StepStartedEvent {
	return &StepStartedEvent{
		BaseEvent: NewBaseEvent(EventTypeStepStarted),
		StepName:  stepName,
	}
}

// Validate validates the step started event
func (e *StepStartedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.StepName == "" {
		return core.NewValidationError("StepStartedEvent", "stepName", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *StepStartedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StepFinishedEvent indicates that an agent step has finished
type StepFinishedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

// NewStepFinishedEvent creates a new step finished event
func NewStepFinishedEvent(stepName string) *StepFinishedEvent {
	return &StepFinishedEvent{
		BaseEvent: NewBaseEvent(EventTypeStepFinished),
		StepName:  stepName,
	}
}

// Validate validates the step finished event
func (e *StepFinishedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.StepName == "" {
		return core.NewValidationError("StepFinishedEvent", "stepName", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *StepFinishedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
