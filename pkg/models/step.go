package models

import (
	"encoding/json"
	"fmt"
)

// StepType discriminates the step variants on the wire.
type StepType string

const (
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeDelay     StepType = "delay"
	StepTypeLoop      StepType = "loop"
	StepTypeVariable  StepType = "variable"
)

// Step is the closed set of workflow step variants. The interpreter
// dispatches on the concrete type; adding a variant requires touching
// every switch, which is intentional.
type Step interface {
	StepID() string
	Type() StepType

	isStep()
}

// Steps is an ordered step sequence. Condition branches and loop bodies
// are Steps as well, so step trees nest to arbitrary depth.
type Steps []Step

// ActionStep invokes an action executor, optionally gated by a condition
// expression evaluated against the execution context.
type ActionStep struct {
	ID         string         `json:"id"`
	ActionType string         `json:"action_type"`
	Params     map[string]any `json:"params,omitempty"`
	Condition  string         `json:"condition,omitempty"`
}

// ConditionStep branches into one of two step sequences.
type ConditionStep struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Then       Steps  `json:"then,omitempty"`
	Else       Steps  `json:"else,omitempty"`
}

// DelayStep suspends the current execution for DurationMs milliseconds.
// Negative durations are a validation error, never clamped.
type DelayStep struct {
	ID         string `json:"id"`
	DurationMs int64  `json:"duration_ms"`
}

// LoopStep repeats Body while Expression evaluates true, bounded by the
// driver's iteration cap.
type LoopStep struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Body       Steps  `json:"body,omitempty"`
}

// VariableStep assigns a context entry. When Expression is set it is
// evaluated against the context; otherwise the literal Value is assigned
// as-is.
type VariableStep struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
}

func (s *ActionStep) StepID() string    { return s.ID }
func (s *ConditionStep) StepID() string { return s.ID }
func (s *DelayStep) StepID() string     { return s.ID }
func (s *LoopStep) StepID() string      { return s.ID }
func (s *VariableStep) StepID() string  { return s.ID }

func (*ActionStep) Type() StepType    { return StepTypeAction }
func (*ConditionStep) Type() StepType { return StepTypeCondition }
func (*DelayStep) Type() StepType     { return StepTypeDelay }
func (*LoopStep) Type() StepType      { return StepTypeLoop }
func (*VariableStep) Type() StepType  { return StepTypeVariable }

func (*ActionStep) isStep()    {}
func (*ConditionStep) isStep() {}
func (*DelayStep) isStep()     {}
func (*LoopStep) isStep()      {}
func (*VariableStep) isStep()  {}

// UnmarshalStep decodes a single step envelope keyed by "type".
func UnmarshalStep(data []byte) (Step, error) {
	var head struct {
		Type StepType `json:"type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid step: %w", err)
	}

	var step Step

	switch head.Type {
	case StepTypeAction:
		step = &ActionStep{}
	case StepTypeCondition:
		step = &ConditionStep{}
	case StepTypeDelay:
		step = &DelayStep{}
	case StepTypeLoop:
		step = &LoopStep{}
	case StepTypeVariable:
		step = &VariableStep{}
	default:
		return nil, fmt.Errorf("unknown step type %q", head.Type)
	}

	if err := json.Unmarshal(data, step); err != nil {
		return nil, fmt.Errorf("invalid %s step: %w", head.Type, err)
	}

	return step, nil
}

func (s *Steps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	steps := make(Steps, 0, len(raw))

	for _, item := range raw {
		step, err := UnmarshalStep(item)
		if err != nil {
			return err
		}

		steps = append(steps, step)
	}

	*s = steps

	return nil
}

func marshalStep(stepType StepType, step any) ([]byte, error) {
	payload, err := json.Marshal(step)
	if err != nil {
		return nil, err
	}

	envelope := make(map[string]json.RawMessage)
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}

	typeTag, err := json.Marshal(stepType)
	if err != nil {
		return nil, err
	}

	envelope["type"] = typeTag

	return json.Marshal(envelope)
}

func (s *ActionStep) MarshalJSON() ([]byte, error) {
	type alias ActionStep

	return marshalStep(StepTypeAction, (*alias)(s))
}

func (s *ConditionStep) MarshalJSON() ([]byte, error) {
	type alias ConditionStep

	return marshalStep(StepTypeCondition, (*alias)(s))
}

func (s *DelayStep) MarshalJSON() ([]byte, error) {
	type alias DelayStep

	return marshalStep(StepTypeDelay, (*alias)(s))
}

func (s *LoopStep) MarshalJSON() ([]byte, error) {
	type alias LoopStep

	return marshalStep(StepTypeLoop, (*alias)(s))
}

func (s *VariableStep) MarshalJSON() ([]byte, error) {
	type alias VariableStep

	return marshalStep(StepTypeVariable, (*alias)(s))
}
