package system

import (
	"go-caseflow/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	db *database.MongodbDB
}

func NewHealthController(db *database.MongodbDB) *HealthController {
	return &HealthController{db: db}
}

// Live godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (c *HealthController) Live(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe, checks the database connection
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (c *HealthController) Ready(ctx *fiber.Ctx) error {
	if err := c.db.Client.Ping(ctx.UserContext(), nil); err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "ok"})
}
