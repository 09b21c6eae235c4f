package workflow

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, roles middleware.RoleChecker, config *config.Config) *WorkflowApi {
	return &WorkflowApi{controller: controller, roles: roles, config: config}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows.Post("/", middleware.RequirePermission(h.roles, "workflows", "create"), h.controller.CreateWorkflow)
	workflows.Get("/", middleware.RequirePermission(h.roles, "workflows", "read"), h.controller.ListWorkflows)

	workflows.Post("/tasks", middleware.RequirePermission(h.roles, "workflows", "create"), h.controller.AddTask)
	workflows.Put("/tasks/:id", middleware.RequirePermission(h.roles, "workflows", "update"), h.controller.UpdateTask)
	workflows.Delete("/tasks/:id", middleware.RequirePermission(h.roles, "workflows", "delete"), h.controller.DeleteTask)

	workflows.Post("/decisions", middleware.RequirePermission(h.roles, "workflows", "create"), h.controller.AddDecisionPoint)
	workflows.Put("/decisions/:id", middleware.RequirePermission(h.roles, "workflows", "update"), h.controller.UpdateDecisionPoint)
	workflows.Delete("/decisions/:id", middleware.RequirePermission(h.roles, "workflows", "delete"), h.controller.DeleteDecisionPoint)

	workflows.Get("/:id/graph", middleware.RequirePermission(h.roles, "workflows", "read"), h.controller.GetGraph)
	workflows.Put("/:id", middleware.RequirePermission(h.roles, "workflows", "update"), h.controller.UpdateWorkflow)
	workflows.Delete("/:id", middleware.RequirePermission(h.roles, "workflows", "delete"), h.controller.DeleteWorkflow)
}
