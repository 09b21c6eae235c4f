package automation

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AutomationApi struct {
	controller *AutomationController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewAutomationApi(controller *AutomationController, roles middleware.RoleChecker, config *config.Config) *AutomationApi {
	return &AutomationApi{controller: controller, roles: roles, config: config}
}

func (h *AutomationApi) Setup(app *fiber.App) {
	rules := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	rules.Post("/", middleware.RequirePermission(h.roles, "automation", "create"), h.controller.CreateRule)
	rules.Get("/", middleware.RequirePermission(h.roles, "automation", "read"), h.controller.ListRules)
	rules.Get("/:id", middleware.RequirePermission(h.roles, "automation", "read"), h.controller.GetRule)
	rules.Put("/:id", middleware.RequirePermission(h.roles, "automation", "update"), h.controller.UpdateRule)
	rules.Delete("/:id", middleware.RequirePermission(h.roles, "automation", "delete"), h.controller.DeleteRule)
}
