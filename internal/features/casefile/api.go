package casefile

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CaseApi struct {
	controller *CaseController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewCaseApi(controller *CaseController, roles middleware.RoleChecker, config *config.Config) *CaseApi {
	return &CaseApi{controller: controller, roles: roles, config: config}
}

func (h *CaseApi) Setup(app *fiber.App) {
	cases := app.Group("/api/cases", middleware.AuthMiddleware(h.config.SkipAuth))

	cases.Post("/", middleware.RequirePermission(h.roles, "cases", "create"), h.controller.CreateCase)
	cases.Get("/", middleware.RequirePermission(h.roles, "cases", "read"), h.controller.ListCases)
	cases.Get("/:id", middleware.RequirePermission(h.roles, "cases", "read"), h.controller.GetCase)
	cases.Get("/:id/history", middleware.RequirePermission(h.roles, "cases", "read"), h.controller.History)
	cases.Put("/:id/sections/:sectionId", middleware.RequirePermission(h.roles, "cases", "update"), h.controller.UpdateSectionData)
	cases.Post("/:id/submit", middleware.RequirePermission(h.roles, "cases", "update"), h.controller.Submit)
	cases.Post("/:id/act", middleware.RequirePermission(h.roles, "cases", "update"), h.controller.ActOnTask)
	cases.Post("/:id/cancel", middleware.RequirePermission(h.roles, "cases", "update"), h.controller.Cancel)
}
