package workflow

import (
	"errors"

	"github.com/botweaver/botweaver/pkg/persistence"
)

var (
	// ErrInvalidState indicates a lifecycle transition whose precondition
	// does not hold, such as pausing an already paused workflow or
	// deleting one with a running execution.
	ErrInvalidState = errors.New("invalid workflow state")

	// ErrValidation indicates a workflow configuration rejected by the
	// validator before it reached the store.
	ErrValidation = errors.New("invalid workflow configuration")
)

// ErrNotFound is what lifecycle operations return for unknown workflow
// ids. It is the persistence sentinel so callers can test either.
var ErrNotFound = persistence.ErrWorkflowNotFound

// IsInvalidState checks if an error indicates an illegal transition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
