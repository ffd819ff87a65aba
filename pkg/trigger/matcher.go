// Package trigger matches inbound events against workflow trigger
// specifications.
package trigger

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/robfig/cron/v3"
)

// MatchResult is the outcome of matching one trigger against one event.
// Data carries the normalized extraction that seeds the execution
// context; it is nil unless Triggered is true.
type MatchResult struct {
	Triggered bool
	Data      models.ExecutionContext
}

// WorkflowMatch pairs a matching workflow with the trigger that fired.
type WorkflowMatch struct {
	Workflow *models.Workflow
	Trigger  *models.Trigger
	Data     models.ExecutionContext
}

// Matcher evaluates triggers independently per inbound event. It holds
// no state between events.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match checks a single trigger against an event.
func (m *Matcher) Match(trigger *models.Trigger, event *models.Event) (MatchResult, error) {
	if trigger.Type != event.Type {
		return MatchResult{}, nil
	}

	switch trigger.Type {
	case models.TriggerTypeMessage:
		return m.matchMessage(trigger, event)
	case models.TriggerTypeScheduled:
		return m.matchScheduled(trigger, event)
	case models.TriggerTypeWebhook:
		return m.matchWebhook(trigger, event), nil
	default:
		return MatchResult{}, fmt.Errorf("unknown trigger type %q", trigger.Type)
	}
}

// MatchWorkflows finds active workflows with a trigger matching the event.
func (m *Matcher) MatchWorkflows(event *models.Event, workflows []*models.Workflow) ([]WorkflowMatch, error) {
	var matches []WorkflowMatch

	for _, workflow := range workflows {
		if workflow.Status != models.WorkflowStatusActive {
			continue
		}

		for _, trg := range workflow.Triggers {
			result, err := m.Match(trg, event)
			if err != nil {
				return nil, fmt.Errorf("trigger %s of workflow %s: %w", trg.ID, workflow.ID, err)
			}

			if !result.Triggered {
				continue
			}

			m.logger.Debug("Trigger matched",
				"workflow_id", workflow.ID,
				"trigger_id", trg.ID,
				"trigger_type", trg.Type)

			matches = append(matches, WorkflowMatch{
				Workflow: workflow,
				Trigger:  trg,
				Data:     result.Data,
			})
		}
	}

	return matches, nil
}

func (m *Matcher) matchMessage(trigger *models.Trigger, event *models.Event) (MatchResult, error) {
	if len(trigger.Sources) > 0 && !slices.Contains(trigger.Sources, event.Source) {
		return MatchResult{}, nil
	}

	// Absence of a pattern means any text matches.
	if trigger.Pattern != "" {
		pattern, err := regexp.Compile(trigger.Pattern)
		if err != nil {
			return MatchResult{}, fmt.Errorf("invalid trigger pattern %q: %w", trigger.Pattern, err)
		}

		if !pattern.MatchString(event.Text) {
			return MatchResult{}, nil
		}
	}

	return MatchResult{Triggered: true, Data: extract(event)}, nil
}

func (m *Matcher) matchScheduled(trigger *models.Trigger, event *models.Event) (MatchResult, error) {
	schedule, err := cron.ParseStandard(trigger.Cron)
	if err != nil {
		return MatchResult{}, fmt.Errorf("invalid cron expression %q: %w", trigger.Cron, err)
	}

	// Minute granularity: the event's minute must be an activation minute.
	minute := event.Timestamp.Truncate(time.Minute)
	if !schedule.Next(minute.Add(-time.Second)).Equal(minute) {
		return MatchResult{}, nil
	}

	return MatchResult{Triggered: true, Data: extract(event)}, nil
}

func (m *Matcher) matchWebhook(trigger *models.Trigger, event *models.Event) MatchResult {
	if event.Path != trigger.Path {
		return MatchResult{}
	}

	return MatchResult{Triggered: true, Data: extract(event)}
}

// extract normalizes event fields into seed context entries. This is the
// only place untrusted input enters the context, so values pass through
// without type coercion.
func extract(event *models.Event) models.ExecutionContext {
	data := models.ExecutionContext{}

	if event.Text != "" {
		data["text"] = event.Text
	}

	if event.UserID != "" {
		data["user_id"] = event.UserID
	}

	if event.Source != "" {
		data["source"] = event.Source
	}

	if event.Path != "" {
		data["path"] = event.Path
	}

	if event.Body != nil {
		data["body"] = event.Body
	}

	return data
}
