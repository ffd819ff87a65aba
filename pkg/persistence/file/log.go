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
	"github.com/botweaver/botweaver/pkg/persistence"
)

// LogRepository appends audit entries to one JSON-lines file per workflow.
type LogRepository struct {
	root string
	mu   sync.Mutex
}

func NewLogRepository(root string) *LogRepository {
	return &LogRepository{root: root}
}

func (lr *LogRepository) path(workflowID string) string {
	return filepath.Join(lr.root, "logs", workflowID+".jsonl")
}

func (lr *LogRepository) Append(_ context.Context, entry *models.LogEntry) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(lr.root, "logs"), 0o750); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	return appendLine(lr.path(entry.WorkflowID), entry)
}

func (lr *LogRepository) Query(_ context.Context, workflowID string, filter persistence.LogFilter) ([]*models.LogEntry, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	file, err := os.Open(lr.path(workflowID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.LogEntry{}, nil
		}

		return nil, fmt.Errorf("failed to open logs for %s: %w", workflowID, err)
	}
	defer file.Close()

	var entries []*models.LogEntry

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var entry models.LogEntry

		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode log entry: %w", err)
		}

		if filter.ExecutionID != "" && entry.ExecutionID != filter.ExecutionID {
			continue
		}

		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}

		entries = append(entries, &entry)

		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read logs for %s: %w", workflowID, err)
	}

	return entries, nil
}
