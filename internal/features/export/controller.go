package export

import (
	"go-caseflow/internal/features/casefile"

	"github.com/gofiber/fiber/v2"
)

type ExportController struct {
	Service ExportService
}

func NewExportController(service ExportService) *ExportController {
	return &ExportController{Service: service}
}

// ExportCases godoc
// @Summary Export a case list view as an Excel workbook
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Status filter"
// @Param form_id query string false "Form filter"
// @Param team_id query string false "Team filter"
// @Param department_id query string false "Department filter"
// @Success 200 {file} binary
// @Router /api/export/cases [get]
func (c *ExportController) ExportCases(ctx *fiber.Ctx) error {
	filter := casefile.ListFilter{
		Status:       ctx.Query("status"),
		FormID:       ctx.Query("form_id"),
		TeamID:       ctx.Query("team_id"),
		DepartmentID: ctx.Query("department_id"),
		CreatedBy:    ctx.Query("created_by"),
	}

	data, filename, err := c.Service.ExportCases(ctx.UserContext(), filter)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return ctx.Send(data)
}
