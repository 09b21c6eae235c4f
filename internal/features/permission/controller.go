package permission

import (
	"github.com/gofiber/fiber/v2"
)

type PermissionController struct {
	Service PermissionService
}

func NewPermissionController(service PermissionService) *PermissionController {
	return &PermissionController{Service: service}
}

// CreatePermission godoc
// @Summary Create a permission record
// @Tags permissions
// @Accept json
// @Produce json
// @Param permission body Permission true "Permission"
// @Success 201 {object} Permission
// @Router /api/permissions [post]
func (c *PermissionController) CreatePermission(ctx *fiber.Ctx) error {
	var input Permission
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreatePermission(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetPermission godoc
// @Summary Get a permission record
// @Tags permissions
// @Produce json
// @Param id path string true "Permission ID"
// @Success 200 {object} Permission
// @Router /api/permissions/{id} [get]
func (c *PermissionController) GetPermission(ctx *fiber.Ctx) error {
	p, err := c.Service.GetPermission(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Permission not found"})
	}
	return ctx.JSON(p)
}

// ListByRole godoc
// @Summary List permission records for a role
// @Tags permissions
// @Produce json
// @Param roleId path string true "Role ID"
// @Success 200 {array} Permission
// @Router /api/permissions/role/{roleId} [get]
func (c *PermissionController) ListByRole(ctx *fiber.Ctx) error {
	perms, err := c.Service.ListByRole(ctx.UserContext(), ctx.Params("roleId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(perms)
}

// UpdatePermission godoc
// @Summary Update a permission record
// @Tags permissions
// @Accept json
// @Produce json
// @Param id path string true "Permission ID"
// @Param permission body Permission true "Permission"
// @Success 200 {object} map[string]string
// @Router /api/permissions/{id} [put]
func (c *PermissionController) UpdatePermission(ctx *fiber.Ctx) error {
	var input Permission
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdatePermission(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Permission updated successfully"})
}

// DeletePermission godoc
// @Summary Delete a permission record
// @Tags permissions
// @Param id path string true "Permission ID"
// @Success 204 {object} nil
// @Router /api/permissions/{id} [delete]
func (c *PermissionController) DeletePermission(ctx *fiber.Ctx) error {
	if err := c.Service.DeletePermission(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
