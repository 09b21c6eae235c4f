package org

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OrgApi struct {
	controller *OrgController
	config     *config.Config
}

func NewOrgApi(controller *OrgController, config *config.Config) *OrgApi {
	return &OrgApi{controller: controller, config: config}
}

func (h *OrgApi) Setup(app *fiber.App) {
	group := app.Group("/api/org", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/companies", h.controller.CreateCompany)
	group.Get("/companies", h.controller.ListCompanies)
	group.Post("/departments", h.controller.CreateDepartment)
	group.Get("/departments", h.controller.ListDepartments)
	group.Post("/teams", h.controller.CreateTeam)
	group.Get("/teams", h.controller.ListTeams)
	group.Post("/applications", h.controller.CreateApplication)
	group.Get("/applications", h.controller.ListApplications)
}
