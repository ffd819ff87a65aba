package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string
	mu   sync.RWMutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if err := os.MkdirAll(wr.dir(), 0o750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(wr.path(workflow.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.Remove(wr.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

func (wr *WorkflowRepository) ListByOrg(ctx context.Context, orgID string, filter persistence.ListWorkflowsFilter) ([]*models.Workflow, error) {
	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if orgID != "" && workflow.OrganizationID != orgID {
			continue
		}

		if filter.Status != nil && workflow.Status != *filter.Status {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}
