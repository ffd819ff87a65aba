package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/services"
	"github.com/botweaver/botweaver/pkg/workflow"
)

type APIHandlers struct {
	manager    *workflow.Manager
	dispatcher *services.Dispatcher
	store      persistence.Persistence
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewAPIHandlers(
	manager *workflow.Manager,
	dispatcher *services.Dispatcher,
	store persistence.Persistence,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		manager:    manager,
		dispatcher: dispatcher,
		store:      store,
		validator:  validate,
		logger:     logger.With("module", "api"),
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	orgID := c.Query("organization_id")
	if orgID == "" {
		return badRequest(c, "organization_id query parameter is required")
	}

	filter := persistence.ListWorkflowsFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		filter.Status = &status
	}

	workflows, err := h.manager.List(c.Context(), orgID, filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	flow, err := h.manager.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.manager.Create(c.Context(), req.OrganizationID, &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Triggers:    req.Triggers,
	})
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.manager.Update(c.Context(), c.Params("id"), workflow.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Triggers:    req.Triggers,
	})
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.manager.Delete(c.Context(), c.Params("id")); err != nil {
		return handleManagerError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	flow, err := h.manager.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	flow, err := h.manager.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) ResumeWorkflow(c fiber.Ctx) error {
	flow, err := h.manager.Resume(c.Context(), c.Params("id"))
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CloneWorkflow(c fiber.Ctx) error {
	var req CloneWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	clone, err := h.manager.Clone(c.Context(), c.Params("id"), req.Name)
	if err != nil {
		return handleManagerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(clone)
}

// ValidateWorkflow statically checks a configuration without storing
// anything, returning every problem at once.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	result := workflow.ValidateConfig(&models.Workflow{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Steps:          req.Steps,
		Triggers:       req.Triggers,
	})

	return c.JSON(result)
}

// ExecuteWorkflow runs a workflow synchronously with an optional seed
// context. Only active workflows can be executed directly.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	flow, err := h.manager.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleManagerError(c, err)
	}

	if flow.Status != models.WorkflowStatusActive {
		return handleManagerError(c, workflow.ErrInvalidState)
	}

	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	record, runErr := h.dispatcher.Execute(c.Context(), flow, req.Context)
	if record == nil {
		return internalError(c, runErr)
	}

	// A failed run still produced a record; the record carries the error.
	return c.JSON(record)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.manager.Get(c.Context(), id); err != nil {
		return handleManagerError(c, err)
	}

	records, err := h.store.Executions().ListByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetLogs(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.manager.Get(c.Context(), id); err != nil {
		return handleManagerError(c, err)
	}

	filter := persistence.LogFilter{
		ExecutionID: c.Query("execution_id"),
		Level:       c.Query("level"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}

		filter.Limit = limit
	}

	entries, err := h.store.Logs().Query(c.Context(), id, filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":        entries,
		"total_count": len(entries),
	})
}

// ReceiveWebhook turns an HTTP POST into a webhook event and dispatches
// it to every matching workflow.
func (h *APIHandlers) ReceiveWebhook(c fiber.Ctx) error {
	path := "/" + c.Params("*")

	var body map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	event := &models.Event{
		Type:      models.TriggerTypeWebhook,
		Path:      path,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}

	records, err := h.dispatcher.HandleEvent(c.Context(), event)
	if err != nil {
		return internalError(c, err)
	}

	executionIDs := make([]string, 0, len(records))
	for _, record := range records {
		executionIDs = append(executionIDs, record.ID)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"matched":       len(records),
		"execution_ids": executionIDs,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
