package form

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type FormApi struct {
	controller *FormController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewFormApi(controller *FormController, roles middleware.RoleChecker, config *config.Config) *FormApi {
	return &FormApi{controller: controller, roles: roles, config: config}
}

func (h *FormApi) Setup(app *fiber.App) {
	forms := app.Group("/api/forms", middleware.AuthMiddleware(h.config.SkipAuth))

	forms.Post("/", middleware.RequirePermission(h.roles, "forms", "create"), h.controller.CreateForm)
	forms.Get("/", middleware.RequirePermission(h.roles, "forms", "read"), h.controller.ListForms)
	forms.Post("/sections", middleware.RequirePermission(h.roles, "forms", "create"), h.controller.CreateSection)
	forms.Put("/sections/:id", middleware.RequirePermission(h.roles, "forms", "update"), h.controller.UpdateSection)
	forms.Delete("/sections/:id", middleware.RequirePermission(h.roles, "forms", "delete"), h.controller.DeleteSection)
	forms.Get("/:id", middleware.RequirePermission(h.roles, "forms", "read"), h.controller.GetForm)
	forms.Get("/:id/sections", middleware.RequirePermission(h.roles, "forms", "read"), h.controller.ListSections)
	forms.Put("/:id", middleware.RequirePermission(h.roles, "forms", "update"), h.controller.UpdateForm)
	forms.Delete("/:id", middleware.RequirePermission(h.roles, "forms", "delete"), h.controller.DeleteForm)
}
