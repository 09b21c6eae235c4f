package org

import (
	"github.com/gofiber/fiber/v2"
)

type OrgController struct {
	Service OrgService
}

func NewOrgController(service OrgService) *OrgController {
	return &OrgController{Service: service}
}

// CreateCompany godoc
// @Summary Create a company
// @Tags org
// @Accept json
// @Produce json
// @Param company body Company true "Company"
// @Success 201 {object} Company
// @Router /api/org/companies [post]
func (c *OrgController) CreateCompany(ctx *fiber.Ctx) error {
	var input Company
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateCompany(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// CreateDepartment godoc
// @Summary Create a department
// @Tags org
// @Accept json
// @Produce json
// @Param department body Department true "Department"
// @Success 201 {object} Department
// @Router /api/org/departments [post]
func (c *OrgController) CreateDepartment(ctx *fiber.Ctx) error {
	var input Department
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateDepartment(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// CreateTeam godoc
// @Summary Create a team
// @Tags org
// @Accept json
// @Produce json
// @Param team body Team true "Team"
// @Success 201 {object} Team
// @Router /api/org/teams [post]
func (c *OrgController) CreateTeam(ctx *fiber.Ctx) error {
	var input Team
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateTeam(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// CreateApplication godoc
// @Summary Create an application
// @Tags org
// @Accept json
// @Produce json
// @Param application body Application true "Application"
// @Success 201 {object} Application
// @Router /api/org/applications [post]
func (c *OrgController) CreateApplication(ctx *fiber.Ctx) error {
	var input Application
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateApplication(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// ListCompanies godoc
// @Summary List companies
// @Tags org
// @Produce json
// @Success 200 {array} Company
// @Router /api/org/companies [get]
func (c *OrgController) ListCompanies(ctx *fiber.Ctx) error {
	companies, err := c.Service.ListCompanies(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(companies)
}

// ListDepartments godoc
// @Summary List departments
// @Tags org
// @Produce json
// @Param company query string false "Company ID"
// @Success 200 {array} Department
// @Router /api/org/departments [get]
func (c *OrgController) ListDepartments(ctx *fiber.Ctx) error {
	departments, err := c.Service.ListDepartments(ctx.UserContext(), ctx.Query("company"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(departments)
}

// ListTeams godoc
// @Summary List teams
// @Tags org
// @Produce json
// @Param department query string false "Department ID"
// @Success 200 {array} Team
// @Router /api/org/teams [get]
func (c *OrgController) ListTeams(ctx *fiber.Ctx) error {
	teams, err := c.Service.ListTeams(ctx.UserContext(), ctx.Query("department"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(teams)
}

// ListApplications godoc
// @Summary List applications
// @Tags org
// @Produce json
// @Success 200 {array} Application
// @Router /api/org/applications [get]
func (c *OrgController) ListApplications(ctx *fiber.Ctx) error {
	apps, err := c.Service.ListApplications(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(apps)
}
