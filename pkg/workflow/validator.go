package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/botweaver/botweaver/pkg/expr"
	"github.com/botweaver/botweaver/pkg/models"
)

var validate = validator.New()

// ValidationResult collects every problem found in a workflow
// configuration so callers can surface them all at once.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateConfig statically checks a workflow configuration: required
// fields, well-formed step variants at every nesting level, expression
// syntax, and non-negative delay durations. It never evaluates
// expressions against a context.
func ValidateConfig(workflow *models.Workflow) ValidationResult {
	var problems []string

	if err := validate.Struct(workflow); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldError := range fieldErrors {
				problems = append(problems, fmt.Sprintf(
					"field %s failed %s validation", fieldError.Field(), fieldError.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	for _, trg := range workflow.Triggers {
		problems = append(problems, validateTrigger(trg)...)
	}

	problems = append(problems, validateSteps(workflow.Steps, "steps")...)

	return ValidationResult{Valid: len(problems) == 0, Errors: problems}
}

func validateTrigger(trg *models.Trigger) []string {
	var problems []string

	if trg.ID == "" {
		problems = append(problems, "trigger is missing an id")
	}

	switch trg.Type {
	case models.TriggerTypeMessage:
		// Pattern and sources are both optional for message triggers.
	case models.TriggerTypeScheduled:
		if trg.Cron == "" {
			problems = append(problems, fmt.Sprintf("trigger %s: scheduled trigger requires a cron expression", trg.ID))
		}
	case models.TriggerTypeWebhook:
		if trg.Path == "" {
			problems = append(problems, fmt.Sprintf("trigger %s: webhook trigger requires a path", trg.ID))
		}
	default:
		problems = append(problems, fmt.Sprintf("trigger %s: unknown type %q", trg.ID, trg.Type))
	}

	return problems
}

func validateSteps(steps models.Steps, path string) []string {
	var problems []string

	for i, step := range steps {
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		if step == nil {
			problems = append(problems, stepPath+": step is nil")
			continue
		}

		if step.StepID() == "" {
			problems = append(problems, stepPath+": step is missing an id")
		}

		problems = append(problems, validateStep(step, stepPath)...)
	}

	return problems
}

func validateStep(step models.Step, path string) []string {
	var problems []string

	switch s := step.(type) {
	case *models.ActionStep:
		if s.ActionType == "" {
			problems = append(problems, path+": action step requires an action type")
		}

		if s.Condition != "" {
			if err := expr.Check(s.Condition); err != nil {
				problems = append(problems, fmt.Sprintf("%s: condition %q: %v", path, s.Condition, err))
			}
		}
	case *models.ConditionStep:
		if s.Expression == "" {
			problems = append(problems, path+": condition step requires an expression")
		} else if err := expr.Check(s.Expression); err != nil {
			problems = append(problems, fmt.Sprintf("%s: expression %q: %v", path, s.Expression, err))
		}

		problems = append(problems, validateSteps(s.Then, path+".then")...)
		problems = append(problems, validateSteps(s.Else, path+".else")...)
	case *models.DelayStep:
		if s.DurationMs < 0 {
			problems = append(problems, fmt.Sprintf("%s: delay duration must be >= 0, got %d", path, s.DurationMs))
		}
	case *models.LoopStep:
		if s.Expression == "" {
			problems = append(problems, path+": loop step requires an expression")
		} else if err := expr.Check(s.Expression); err != nil {
			problems = append(problems, fmt.Sprintf("%s: expression %q: %v", path, s.Expression, err))
		}

		problems = append(problems, validateSteps(s.Body, path+".body")...)
	case *models.VariableStep:
		if s.Name == "" {
			problems = append(problems, path+": variable step requires a name")
		}

		if s.Expression != "" {
			if err := expr.Check(s.Expression); err != nil {
				problems = append(problems, fmt.Sprintf("%s: expression %q: %v", path, s.Expression, err))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("%s: unknown step type %q", path, step.Type()))
	}

	return problems
}
