package export

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExportApi struct {
	controller *ExportController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewExportApi(controller *ExportController, roles middleware.RoleChecker, config *config.Config) *ExportApi {
	return &ExportApi{controller: controller, roles: roles, config: config}
}

func (h *ExportApi) Setup(app *fiber.App) {
	group := app.Group("/api/export", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/cases", middleware.RequirePermission(h.roles, "cases", "read"), h.controller.ExportCases)
}
