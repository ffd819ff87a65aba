package workflow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/engine"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/persistence/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func (c fixedClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newTestManager(t *testing.T) (*Manager, *engine.InFlight, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	inFlight := engine.NewInFlight()
	manager := NewManager(store, inFlight, slog.Default(),
		WithClock(fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}))

	return manager, inFlight, store
}

func validConfig() *models.Workflow {
	return &models.Workflow{
		Name:        "Greeter",
		Description: "Greets on mention",
		Steps: models.Steps{
			&models.VariableStep{ID: "s1", Name: "greeting", Value: "hello"},
			&models.ActionStep{ID: "s2", ActionType: "log", Params: map[string]any{"message": "hi"}},
		},
		Triggers: []*models.Trigger{
			{ID: "t1", Type: models.TriggerTypeMessage, Pattern: "^hello"},
		},
	}
}

func TestManagerCreate(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "org-1", created.OrganizationID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
	assert.Equal(t, int64(0), created.ExecutionCount)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	stored, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)
}

func TestManagerCreateRejectsInvalidConfig(t *testing.T) {
	manager, _, _ := newTestManager(t)

	config := validConfig()
	config.Name = ""

	_, err := manager.Create(context.Background(), "org-1", config)
	require.ErrorIs(t, err, ErrValidation)
}

func TestManagerUpdateMergesPartialConfig(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	name := "Greeter v2"
	updated, err := manager.Update(ctx, created.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Greeter v2", updated.Name)
	assert.Equal(t, created.Description, updated.Description)
	assert.Len(t, updated.Steps, 2)
}

func TestManagerUpdateRevalidates(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	_, err = manager.Update(ctx, created.ID, UpdateRequest{
		Steps: models.Steps{&models.DelayStep{ID: "d1", DurationMs: -1}},
	})
	require.ErrorIs(t, err, ErrValidation)

	stored, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Steps, 2)
}

func TestManagerUpdateUnknownWorkflow(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Update(context.Background(), "wf-missing", UpdateRequest{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManagerPauseResume(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	paused, err := manager.Pause(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)
	require.NotNil(t, paused.PausedAt)

	// Pausing again must fail, not silently succeed.
	_, err = manager.Pause(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	resumed, err := manager.Resume(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)

	_, err = manager.Resume(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestManagerActivateDraft(t *testing.T) {
	manager, _, store := newTestManager(t)
	ctx := context.Background()

	draft := validConfig()
	draft.ID = "wf-draft"
	draft.Status = models.WorkflowStatusDraft
	require.NoError(t, store.Workflows().Save(ctx, draft))

	activated, err := manager.Activate(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)

	// Activating an already active workflow must fail.
	_, err = manager.Activate(ctx, draft.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestManagerDeleteWhileRunning(t *testing.T) {
	manager, inFlight, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	inFlight.Begin(created.ID)
	defer inFlight.End(created.ID)

	err = manager.Delete(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "running")
}

func TestManagerDelete(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, created.ID))

	_, err = manager.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	err = manager.Delete(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManagerClone(t *testing.T) {
	manager, _, store := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	created.ExecutionCount = 7
	lastRun := time.Now().UTC()
	created.LastExecuted = &lastRun
	require.NoError(t, store.Workflows().Save(ctx, created))

	clone, err := manager.Clone(ctx, created.ID, "")
	require.NoError(t, err)

	assert.NotEqual(t, created.ID, clone.ID)
	assert.Equal(t, "Greeter Copy", clone.Name)
	assert.Equal(t, "org-1", clone.OrganizationID)
	assert.Equal(t, int64(0), clone.ExecutionCount)
	assert.Nil(t, clone.LastExecuted)
	require.Len(t, clone.Steps, 2)

	// The clone must not share nested structures with the original.
	cloneVar, ok := clone.Steps[0].(*models.VariableStep)
	require.True(t, ok)
	cloneVar.Name = "mutated"

	original, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	originalVar, ok := original.Steps[0].(*models.VariableStep)
	require.True(t, ok)
	assert.Equal(t, "greeting", originalVar.Name)
}

func TestManagerCloneWithExplicitName(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	clone, err := manager.Clone(ctx, created.ID, "Standalone")
	require.NoError(t, err)
	assert.Equal(t, "Standalone", clone.Name)
}

func TestManagerList(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Create(ctx, "org-1", validConfig())
	require.NoError(t, err)

	second := validConfig()
	second.Name = "Audit"
	_, err = manager.Create(ctx, "org-1", second)
	require.NoError(t, err)

	other := validConfig()
	_, err = manager.Create(ctx, "org-2", other)
	require.NoError(t, err)

	_, err = manager.Pause(ctx, first.ID)
	require.NoError(t, err)

	all, err := manager.List(ctx, "org-1", persistence.ListWorkflowsFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	paused := models.WorkflowStatusPaused
	filtered, err := manager.List(ctx, "org-1", persistence.ListWorkflowsFilter{Status: &paused})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)
}
