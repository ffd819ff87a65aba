// Package redis provides Redis-backed persistence for workflows,
// executions and audit logs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const (
	workflowsKey     = "botweaver:workflows"
	executionsPrefix = "botweaver:executions:"
	logsPrefix       = "botweaver:logs:"
)

// Persistence implements persistence.Persistence on a Redis instance.
// Workflows live in one hash keyed by id; executions and logs are
// append-only lists per workflow.
type Persistence struct {
	client        redis.UniversalClient
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	logRepo       *LogRepository
}

// NewPersistence creates a Redis persistence from a connection URL.
func NewPersistence(url string) (*Persistence, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewPersistenceWithClient(redis.NewClient(opts)), nil
}

// NewPersistenceWithClient wraps an existing client, useful for tests.
func NewPersistenceWithClient(client redis.UniversalClient) *Persistence {
	return &Persistence{
		client:        client,
		workflowRepo:  &WorkflowRepository{client: client},
		executionRepo: &ExecutionRepository{client: client},
		logRepo:       &LogRepository{client: client},
	}
}

func (rp *Persistence) Workflows() persistence.WorkflowRepository {
	return rp.workflowRepo
}

func (rp *Persistence) Executions() persistence.ExecutionRepository {
	return rp.executionRepo
}

func (rp *Persistence) Logs() persistence.LogRepository {
	return rp.logRepo
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}

// WorkflowRepository stores workflows as JSON documents in a Redis hash.
type WorkflowRepository struct {
	client redis.UniversalClient
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := wr.client.HGet(ctx, workflowsKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal([]byte(data), &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	if err := wr.client.HSet(ctx, workflowsKey, workflow.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	removed, err := wr.client.HDel(ctx, workflowsKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if removed == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (wr *WorkflowRepository) ListByOrg(ctx context.Context, orgID string, filter persistence.ListWorkflowsFilter) ([]*models.Workflow, error) {
	all, err := wr.client.HGetAll(ctx, workflowsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(all))

	for id, data := range all {
		var workflow models.Workflow

		if err := json.Unmarshal([]byte(data), &workflow); err != nil {
			return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
		}

		if orgID != "" && workflow.OrganizationID != orgID {
			continue
		}

		if filter.Status != nil && workflow.Status != *filter.Status {
			continue
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

// ExecutionRepository appends execution records to a per-workflow list.
type ExecutionRepository struct {
	client redis.UniversalClient
}

func (er *ExecutionRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	if err := er.client.RPush(ctx, executionsPrefix+record.WorkflowID, data).Err(); err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}

	return nil
}

func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	items, err := er.client.LRange(ctx, executionsPrefix+workflowID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions for %s: %w", workflowID, err)
	}

	records := make([]*models.ExecutionRecord, 0, len(items))

	for _, item := range items {
		var record models.ExecutionRecord

		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

// LogRepository appends audit entries to a per-workflow list.
type LogRepository struct {
	client redis.UniversalClient
}

func (lr *LogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}

	if err := lr.client.RPush(ctx, logsPrefix+entry.WorkflowID, data).Err(); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

func (lr *LogRepository) Query(ctx context.Context, workflowID string, filter persistence.LogFilter) ([]*models.LogEntry, error) {
	items, err := lr.client.LRange(ctx, logsPrefix+workflowID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for %s: %w", workflowID, err)
	}

	entries := make([]*models.LogEntry, 0, len(items))

	for _, item := range items {
		var entry models.LogEntry

		if err := json.Unmarshal([]byte(item), &entry); err != nil {
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

	return entries, nil
}
