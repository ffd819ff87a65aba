// Package file provides file-based persistence for workflows, executions
// and audit logs.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/botweaver/botweaver/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
// Workflows live one JSON document per id; executions and logs are
// append-only JSON-lines files per workflow.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	logRepo       *LogRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		logRepo:       NewLogRepository(cleanRoot),
	}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) Logs() persistence.LogRepository {
	return fp.logRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
