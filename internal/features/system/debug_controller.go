package system

import (
	"go-caseflow/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct{}

func NewDebugController() *DebugController {
	return &DebugController{}
}

// GetCurrentUser godoc
// @Summary Show the caller's token claims
// @Tags debug
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/debug/me [get]
func (c *DebugController) GetCurrentUser(ctx *fiber.Ctx) error {
	claims, _ := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no token claims"})
	}
	return ctx.JSON(fiber.Map{
		"user_id": claims.UserID,
		"roles":   claims.RoleIDs,
	})
}
