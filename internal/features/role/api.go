package role

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RoleApi struct {
	controller *RoleController
	service    RoleService
	config     *config.Config
}

func NewRoleApi(controller *RoleController, service RoleService, config *config.Config) *RoleApi {
	return &RoleApi{controller: controller, service: service, config: config}
}

func (h *RoleApi) Setup(app *fiber.App) {
	roles := app.Group("/api/roles", middleware.AuthMiddleware(h.config.SkipAuth))

	roles.Post("/", middleware.RequirePermission(h.service, "roles", "create"), h.controller.CreateRole)
	roles.Get("/", middleware.RequirePermission(h.service, "roles", "read"), h.controller.ListRoles)
	roles.Get("/:id", middleware.RequirePermission(h.service, "roles", "read"), h.controller.GetRole)
	roles.Put("/:id", middleware.RequirePermission(h.service, "roles", "update"), h.controller.UpdateRole)
	roles.Delete("/:id", middleware.RequirePermission(h.service, "roles", "delete"), h.controller.DeleteRole)
}
