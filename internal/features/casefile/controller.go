package casefile

import (
	"errors"
	"strconv"

	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/workflow"
	"go-caseflow/pkg/condition"

	"github.com/gofiber/fiber/v2"
)

type CaseController struct {
	Service CaseService
}

func NewCaseController(service CaseService) *CaseController {
	return &CaseController{Service: service}
}

// saveStatus maps the lifecycle error taxonomy onto HTTP statuses. All of
// these mean the save rolled back and the case kept its prior state.
func saveStatus(err error) int {
	switch {
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrMissingWorkflow),
		errors.Is(err, workflow.ErrInvalidWorkflow),
		errors.Is(err, workflow.ErrNoAssignee),
		errors.Is(err, permission.ErrAmbiguousAssignment),
		errors.Is(err, condition.ErrInvalidCondition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}

// CreateCase godoc
// @Summary Create a draft case from a form
// @Tags cases
// @Accept json
// @Produce json
// @Param case body CreateCaseInput true "Case"
// @Success 201 {object} Case
// @Router /api/cases [post]
func (c *CaseController) CreateCase(ctx *fiber.Ctx) error {
	var input CreateCaseInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	created, err := c.Service.CreateCase(ctx.UserContext(), input)
	if err != nil {
		return ctx.Status(saveStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(created)
}

// GetCase godoc
// @Summary Get a case with its data and current step instances
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} CaseDetail
// @Router /api/cases/{id} [get]
func (c *CaseController) GetCase(ctx *fiber.Ctx) error {
	detail, err := c.Service.GetCase(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Case not found"})
	}
	return ctx.JSON(detail)
}

// ListCases godoc
// @Summary List cases
// @Tags cases
// @Produce json
// @Param status query string false "Status"
// @Param form_id query string false "Form ID"
// @Param team_id query string false "Team ID"
// @Param department_id query string false "Department ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} Case
// @Router /api/cases [get]
func (c *CaseController) ListCases(ctx *fiber.Ctx) error {
	filter := ListFilter{
		Status:       ctx.Query("status"),
		FormID:       ctx.Query("form_id"),
		TeamID:       ctx.Query("team_id"),
		DepartmentID: ctx.Query("department_id"),
		CreatedBy:    ctx.Query("created_by"),
	}
	limit, _ := strconv.ParseInt(ctx.Query("limit", "50"), 10, 64)
	offset, _ := strconv.ParseInt(ctx.Query("offset", "0"), 10, 64)

	cases, err := c.Service.ListCases(ctx.UserContext(), filter, limit, offset)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(cases)
}

// UpdateSectionData godoc
// @Summary Update one section's payload on a case
// @Tags cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param sectionId path string true "Section ID"
// @Param data body map[string]interface{} true "Section payload"
// @Success 200 {object} Case
// @Router /api/cases/{id}/sections/{sectionId} [put]
func (c *CaseController) UpdateSectionData(ctx *fiber.Ctx) error {
	var data map[string]interface{}
	if err := ctx.BodyParser(&data); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	updated, err := c.Service.UpdateSectionData(ctx.UserContext(), ctx.Params("id"), ctx.Params("sectionId"), data)
	if err != nil {
		return ctx.Status(saveStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(updated)
}

// Submit godoc
// @Summary Submit a case, starting its workflow
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} Case
// @Router /api/cases/{id}/submit [post]
func (c *CaseController) Submit(ctx *fiber.Ctx) error {
	submitted, err := c.Service.Submit(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(saveStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(submitted)
}

// ActOnTask godoc
// @Summary Record a decision on the caller's task instance
// @Tags cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param action body ActionInput true "Action"
// @Success 200 {object} Case
// @Router /api/cases/{id}/act [post]
func (c *CaseController) ActOnTask(ctx *fiber.Ctx) error {
	var input ActionInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	updated, err := c.Service.ActOnTask(ctx.UserContext(), ctx.Params("id"), input)
	if err != nil {
		return ctx.Status(saveStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(updated)
}

// Cancel godoc
// @Summary Cancel a case
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} Case
// @Router /api/cases/{id}/cancel [post]
func (c *CaseController) Cancel(ctx *fiber.Ctx) error {
	cancelled, err := c.Service.Cancel(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(saveStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(cancelled)
}

// History godoc
// @Summary Get the case's aggregated change history
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {array} common_models.AuditLog
// @Router /api/cases/{id}/history [get]
func (c *CaseController) History(ctx *fiber.Ctx) error {
	logs, err := c.Service.History(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}
