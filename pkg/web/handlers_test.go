package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/engine"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence/memory"
	"github.com/botweaver/botweaver/pkg/services"
	"github.com/botweaver/botweaver/pkg/trigger"
	"github.com/botweaver/botweaver/pkg/web"
	"github.com/botweaver/botweaver/pkg/workflow"
)

type recordingExecutor struct {
	calls []string
}

func (e *recordingExecutor) Execute(_ context.Context, actionType string, _ map[string]any, _ models.ExecutionContext) (any, error) {
	e.calls = append(e.calls, actionType)

	return map[string]any{"ok": true}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *workflow.Manager) {
	t.Helper()

	store := memory.NewPersistence()
	logger := slog.Default()
	executor := &recordingExecutor{}
	driver := engine.NewDriver(executor, store, logger)
	manager := workflow.NewManager(store, driver.InFlight(), logger)
	dispatcher := services.NewDispatcher(store, trigger.NewMatcher(logger), driver, logger)
	handlers := web.NewAPIHandlers(manager, dispatcher, store,
		validator.New(validator.WithRequiredStructEnabled()), logger)

	return web.NewApp(handlers), manager
}

func createTestWorkflow(t *testing.T, manager *workflow.Manager) *models.Workflow {
	t.Helper()

	created, err := manager.Create(context.Background(), "org-1", &models.Workflow{
		Name: "Test Workflow",
		Steps: models.Steps{
			&models.VariableStep{ID: "v1", Name: "result", Value: "done"},
		},
		Triggers: []*models.Trigger{
			{ID: "t1", Type: models.TriggerTypeWebhook, Path: "/hooks/ping"},
		},
	})
	require.NoError(t, err)

	return created
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestCreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/", web.CreateWorkflowRequest{
		OrganizationID: "org-1",
		Name:           "Created via API",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[models.Workflow](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
}

func TestCreateWorkflowRejectsMissingFields(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/", map[string]any{
		"name": "No org",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fetched := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Len(t, fetched.Steps, 1)

	resp = doJSON(t, app, http.MethodGet, "/workflows/wf-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListWorkflowsRequiresOrg(t *testing.T) {
	app, manager := setupTestApp(t)
	createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodGet, "/workflows/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/?organization_id=org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 1.0, listing["total_count"])
}

func TestPauseResumeEndpoints(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	paused := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)

	// Pausing again conflicts.
	resp = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/resume", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCloneEndpoint(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/clone", web.CloneWorkflowRequest{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	clone := decodeBody[models.Workflow](t, resp)
	assert.Equal(t, "Test Workflow Copy", clone.Name)
	assert.NotEqual(t, created.ID, clone.ID)
}

func TestDeleteEndpoint(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateEndpointReturnsAllProblems(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/validate", map[string]any{
		"organization_id": "org-1",
		"name":            "",
		"steps": []map[string]any{
			{"type": "delay", "id": "d1", "duration_ms": -5},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[workflow.ValidationResult](t, resp)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestExecuteEndpoint(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowRequest{
		Context: models.ExecutionContext{"seeded": "yes"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record := decodeBody[models.ExecutionRecord](t, resp)
	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)
	assert.Equal(t, "yes", record.FinalContext["seeded"])
	assert.Equal(t, "done", record.FinalContext["result"])
}

func TestExecuteEndpointRejectsPausedWorkflow(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	_, err := manager.Pause(context.Background(), created.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebhookEndpointDispatches(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/webhooks/hooks/ping", map[string]any{
		"ref": "main",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	result := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 1.0, result["matched"])

	// The execution shows up on the executions endpoint.
	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 1.0, listing["total_count"])
}

func TestWebhookEndpointNoMatch(t *testing.T) {
	app, manager := setupTestApp(t)
	createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/webhooks/hooks/other", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	result := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 0.0, result["matched"])
}

func TestLogsEndpoint(t *testing.T) {
	app, manager := setupTestApp(t)
	created := createTestWorkflow(t, manager)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decodeBody[models.ExecutionRecord](t, resp)

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/logs?execution_id="+record.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decodeBody[map[string]any](t, resp)
	// Run start, one step, run finish.
	assert.Equal(t, 3.0, listing["total_count"])

	resp = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/logs?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
