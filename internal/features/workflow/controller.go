package workflow

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

func configStatus(err error) int {
	if errors.Is(err, ErrInvalidWorkflow) {
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusBadRequest
}

// CreateWorkflow godoc
// @Summary Create a workflow for a form
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow body Workflow true "Workflow"
// @Success 201 {object} Workflow
// @Router /api/workflows [post]
func (c *WorkflowController) CreateWorkflow(ctx *fiber.Ctx) error {
	var input Workflow
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateWorkflow(ctx.UserContext(), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetGraph godoc
// @Summary Get a workflow's full task graph
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Graph
// @Router /api/workflows/{id}/graph [get]
func (c *WorkflowController) GetGraph(ctx *fiber.Ctx) error {
	graph, err := c.Service.GetGraph(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Workflow not found"})
	}
	return ctx.JSON(graph)
}

// ListWorkflows godoc
// @Summary List workflows
// @Tags workflows
// @Produce json
// @Success 200 {array} Workflow
// @Router /api/workflows [get]
func (c *WorkflowController) ListWorkflows(ctx *fiber.Ctx) error {
	workflows, err := c.Service.ListWorkflows(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(workflows)
}

// UpdateWorkflow godoc
// @Summary Update a workflow header
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param workflow body Workflow true "Workflow"
// @Success 200 {object} map[string]string
// @Router /api/workflows/{id} [put]
func (c *WorkflowController) UpdateWorkflow(ctx *fiber.Ctx) error {
	var input Workflow
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateWorkflow(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Workflow updated successfully"})
}

// DeleteWorkflow godoc
// @Summary Delete a workflow with its tasks and decisions
// @Tags workflows
// @Param id path string true "Workflow ID"
// @Success 204 {object} nil
// @Router /api/workflows/{id} [delete]
func (c *WorkflowController) DeleteWorkflow(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteWorkflow(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// AddTask godoc
// @Summary Add a task to a workflow
// @Tags workflows
// @Accept json
// @Produce json
// @Param task body Task true "Task"
// @Success 201 {object} Task
// @Router /api/workflows/tasks [post]
func (c *WorkflowController) AddTask(ctx *fiber.Ctx) error {
	var input Task
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.AddTask(ctx.UserContext(), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// UpdateTask godoc
// @Summary Update a workflow task
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param task body Task true "Task"
// @Success 200 {object} map[string]string
// @Router /api/workflows/tasks/{id} [put]
func (c *WorkflowController) UpdateTask(ctx *fiber.Ctx) error {
	var input Task
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateTask(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Task updated successfully"})
}

// DeleteTask godoc
// @Summary Delete a workflow task
// @Tags workflows
// @Param id path string true "Task ID"
// @Success 204 {object} nil
// @Router /api/workflows/tasks/{id} [delete]
func (c *WorkflowController) DeleteTask(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteTask(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// AddDecisionPoint godoc
// @Summary Add a decision point to a task
// @Tags workflows
// @Accept json
// @Produce json
// @Param decision body DecisionPoint true "Decision point"
// @Success 201 {object} DecisionPoint
// @Router /api/workflows/decisions [post]
func (c *WorkflowController) AddDecisionPoint(ctx *fiber.Ctx) error {
	var input DecisionPoint
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.AddDecisionPoint(ctx.UserContext(), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// UpdateDecisionPoint godoc
// @Summary Update a decision point
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Decision point ID"
// @Param decision body DecisionPoint true "Decision point"
// @Success 200 {object} map[string]string
// @Router /api/workflows/decisions/{id} [put]
func (c *WorkflowController) UpdateDecisionPoint(ctx *fiber.Ctx) error {
	var input DecisionPoint
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateDecisionPoint(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return ctx.Status(configStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Decision point updated successfully"})
}

// DeleteDecisionPoint godoc
// @Summary Delete a decision point
// @Tags workflows
// @Param id path string true "Decision point ID"
// @Success 204 {object} nil
// @Router /api/workflows/decisions/{id} [delete]
func (c *WorkflowController) DeleteDecisionPoint(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteDecisionPoint(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
