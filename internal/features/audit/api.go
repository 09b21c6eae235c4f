package audit

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewAuditApi(controller *AuditController, roles middleware.RoleChecker, config *config.Config) *AuditApi {
	return &AuditApi{controller: controller, roles: roles, config: config}
}

func (h *AuditApi) Setup(app *fiber.App) {
	audit := app.Group("/api/audit", middleware.AuthMiddleware(h.config.SkipAuth))

	audit.Get("/", middleware.RequirePermission(h.roles, "audit", "read"), h.controller.ListLogs)
	audit.Get("/:entity/:id", middleware.RequirePermission(h.roles, "audit", "read"), h.controller.RecordHistory)
}
