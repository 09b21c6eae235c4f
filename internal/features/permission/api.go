package permission

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/features/role"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PermissionApi struct {
	controller  *PermissionController
	roleService role.RoleService
	config      *config.Config
}

func NewPermissionApi(controller *PermissionController, roleService role.RoleService, config *config.Config) *PermissionApi {
	return &PermissionApi{controller: controller, roleService: roleService, config: config}
}

func (h *PermissionApi) Setup(app *fiber.App) {
	perms := app.Group("/api/permissions", middleware.AuthMiddleware(h.config.SkipAuth))

	perms.Post("/", middleware.RequirePermission(h.roleService, "permissions", "create"), h.controller.CreatePermission)
	perms.Get("/role/:roleId", middleware.RequirePermission(h.roleService, "permissions", "read"), h.controller.ListByRole)
	perms.Get("/:id", middleware.RequirePermission(h.roleService, "permissions", "read"), h.controller.GetPermission)
	perms.Put("/:id", middleware.RequirePermission(h.roleService, "permissions", "update"), h.controller.UpdatePermission)
	perms.Delete("/:id", middleware.RequirePermission(h.roleService, "permissions", "delete"), h.controller.DeletePermission)
}
