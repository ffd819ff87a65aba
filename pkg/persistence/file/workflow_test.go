package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
)

func saveWorkflow(t *testing.T, store *Persistence, id, orgID string, status models.WorkflowStatus, createdAt time.Time) {
	t.Helper()

	err := store.Workflows().Save(context.Background(), &models.Workflow{
		ID:             id,
		OrganizationID: orgID,
		Name:           id,
		Status:         status,
		CreatedAt:      createdAt,
	})
	require.NoError(t, err)
}

func TestListByOrgFreshRoot(t *testing.T) {
	store := NewPersistence(t.TempDir())

	// No Save has happened, so the workflows directory does not exist yet.
	workflows, err := store.Workflows().ListByOrg(context.Background(), "", persistence.ListWorkflowsFilter{})
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestListByOrgFilters(t *testing.T) {
	store := NewPersistence(t.TempDir())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	saveWorkflow(t, store, "wf-a", "org-1", models.WorkflowStatusActive, base)
	saveWorkflow(t, store, "wf-b", "org-1", models.WorkflowStatusPaused, base.Add(time.Minute))
	saveWorkflow(t, store, "wf-c", "org-2", models.WorkflowStatusActive, base.Add(2*time.Minute))

	ctx := context.Background()

	org1, err := store.Workflows().ListByOrg(ctx, "org-1", persistence.ListWorkflowsFilter{})
	require.NoError(t, err)
	require.Len(t, org1, 2)
	assert.Equal(t, "wf-a", org1[0].ID)
	assert.Equal(t, "wf-b", org1[1].ID)

	active := models.WorkflowStatusActive

	// Empty orgID sweeps every organization; the status filter still applies.
	allActive, err := store.Workflows().ListByOrg(ctx, "", persistence.ListWorkflowsFilter{Status: &active})
	require.NoError(t, err)
	require.Len(t, allActive, 2)
	assert.Equal(t, "wf-a", allActive[0].ID)
	assert.Equal(t, "wf-c", allActive[1].ID)
}
