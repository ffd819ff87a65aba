package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/botweaver/botweaver/pkg/models"
)

// ExecutionRepository appends execution records to one JSON-lines file
// per workflow.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) path(workflowID string) string {
	return filepath.Join(er.root, "executions", workflowID+".jsonl")
}

func (er *ExecutionRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(er.root, "executions"), 0o750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	return appendLine(er.path(record.WorkflowID), record)
}

func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	file, err := os.Open(er.path(workflowID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.ExecutionRecord{}, nil
		}

		return nil, fmt.Errorf("failed to open executions for %s: %w", workflowID, err)
	}
	defer file.Close()

	var records []*models.ExecutionRecord

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var record models.ExecutionRecord

		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}

		records = append(records, &record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read executions for %s: %w", workflowID, err)
	}

	return records, nil
}

func appendLine(path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}

	return nil
}
