package form

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type FormController struct {
	Service FormService
}

func NewFormController(service FormService) *FormController {
	return &FormController{Service: service}
}

// CreateForm godoc
// @Summary Create a form
// @Tags forms
// @Accept json
// @Produce json
// @Param form body Form true "Form"
// @Success 201 {object} Form
// @Router /api/forms [post]
func (c *FormController) CreateForm(ctx *fiber.Ctx) error {
	var input Form
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateForm(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetForm godoc
// @Summary Get a form by ID
// @Tags forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} Form
// @Router /api/forms/{id} [get]
func (c *FormController) GetForm(ctx *fiber.Ctx) error {
	f, err := c.Service.GetForm(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}
	return ctx.JSON(f)
}

// ListForms godoc
// @Summary List forms
// @Tags forms
// @Produce json
// @Success 200 {array} Form
// @Router /api/forms [get]
func (c *FormController) ListForms(ctx *fiber.Ctx) error {
	forms, err := c.Service.ListForms(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(forms)
}

// UpdateForm godoc
// @Summary Update a form header
// @Tags forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param form body Form true "Form"
// @Success 200 {object} map[string]string
// @Router /api/forms/{id} [put]
func (c *FormController) UpdateForm(ctx *fiber.Ctx) error {
	var input Form
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateForm(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Form updated successfully"})
}

// DeleteForm godoc
// @Summary Delete a form and its sections
// @Tags forms
// @Param id path string true "Form ID"
// @Success 204 {object} nil
// @Router /api/forms/{id} [delete]
func (c *FormController) DeleteForm(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteForm(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// CreateSection godoc
// @Summary Add a section to a form
// @Tags forms
// @Accept json
// @Produce json
// @Param section body FormSection true "Section"
// @Success 201 {object} FormSection
// @Router /api/forms/sections [post]
func (c *FormController) CreateSection(ctx *fiber.Ctx) error {
	var input FormSection
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateSection(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// ListSections godoc
// @Summary List a form's sections
// @Tags forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {array} FormSection
// @Router /api/forms/{id}/sections [get]
func (c *FormController) ListSections(ctx *fiber.Ctx) error {
	sections, err := c.Service.ListSections(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sections)
}

// UpdateSection godoc
// @Summary Update a form section
// @Tags forms
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param section body FormSection true "Section"
// @Success 200 {object} map[string]string
// @Router /api/forms/sections/{id} [put]
func (c *FormController) UpdateSection(ctx *fiber.Ctx) error {
	var input FormSection
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateSection(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, ErrInvalidPayload) {
			status = fiber.StatusBadRequest
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Section updated successfully"})
}

// DeleteSection godoc
// @Summary Delete a form section
// @Tags forms
// @Param id path string true "Section ID"
// @Success 204 {object} nil
// @Router /api/forms/sections/{id} [delete]
func (c *FormController) DeleteSection(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteSection(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
