package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Param entity query string false "Entity name"
// @Param actor_id query string false "Actor ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} common_models.AuditLog
// @Router /api/audit [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	filters := map[string]interface{}{}
	if entity := ctx.Query("entity"); entity != "" {
		filters["entity"] = entity
	}
	if actor := ctx.Query("actor_id"); actor != "" {
		filters["actor_id"] = actor
	}
	limit, _ := strconv.ParseInt(ctx.Query("limit", "50"), 10, 64)
	offset, _ := strconv.ParseInt(ctx.Query("offset", "0"), 10, 64)

	logs, err := c.Service.ListLogs(ctx.UserContext(), filters, limit, offset)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}

// RecordHistory godoc
// @Summary Get the full change history of a record
// @Tags audit
// @Produce json
// @Param entity path string true "Entity name"
// @Param id path string true "Record ID"
// @Success 200 {array} common_models.AuditLog
// @Router /api/audit/{entity}/{id} [get]
func (c *AuditController) RecordHistory(ctx *fiber.Ctx) error {
	logs, err := c.Service.History(ctx.UserContext(), ctx.Params("entity"), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}
