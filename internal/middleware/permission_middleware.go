package middleware

import (
	"context"

	"go-caseflow/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RoleChecker is satisfied by the role service. Declared here so the
// middleware does not depend on the feature package.
type RoleChecker interface {
	HasMenuPermission(ctx context.Context, roleIDs []string, resource string, action string) (bool, error)
}

// RequirePermission guards a route behind a role-derived menu permission.
func RequirePermission(roles RoleChecker, resource string, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authentication context"})
		}

		allowed, err := roles.HasMenuPermission(c.UserContext(), claims.RoleIDs, resource, action)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
		}

		return c.Next()
	}
}
