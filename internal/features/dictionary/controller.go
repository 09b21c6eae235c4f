package dictionary

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type DictionaryController struct {
	Service DictionaryService
}

func NewDictionaryController(service DictionaryService) *DictionaryController {
	return &DictionaryController{Service: service}
}

// CreateEntry godoc
// @Summary Create a dictionary entry
// @Tags dictionary
// @Accept json
// @Produce json
// @Param entry body Entry true "Entry"
// @Success 201 {object} Entry
// @Router /api/dictionary [post]
func (c *DictionaryController) CreateEntry(ctx *fiber.Ctx) error {
	var input Entry
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.CreateEntry(ctx.UserContext(), &input); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrInvalidEntry) {
			status = fiber.StatusUnprocessableEntity
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// ListEntries godoc
// @Summary List dictionary entries
// @Tags dictionary
// @Produce json
// @Success 200 {array} Entry
// @Router /api/dictionary [get]
func (c *DictionaryController) ListEntries(ctx *fiber.Ctx) error {
	entries, err := c.Service.ListEntries(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(entries)
}

// GetEntry godoc
// @Summary Get a dictionary entry by name
// @Tags dictionary
// @Produce json
// @Param name path string true "Dictionary name"
// @Success 200 {object} Entry
// @Router /api/dictionary/{name} [get]
func (c *DictionaryController) GetEntry(ctx *fiber.Ctx) error {
	entry, err := c.Service.GetEntry(ctx.UserContext(), ctx.Params("name"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Dictionary not found"})
	}
	return ctx.JSON(entry)
}

// UpdateEntry godoc
// @Summary Update a dictionary entry
// @Tags dictionary
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param entry body Entry true "Entry"
// @Success 200 {object} map[string]string
// @Router /api/dictionary/{id} [put]
func (c *DictionaryController) UpdateEntry(ctx *fiber.Ctx) error {
	var input Entry
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := c.Service.UpdateEntry(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrInvalidEntry) {
			status = fiber.StatusUnprocessableEntity
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Dictionary entry updated successfully"})
}

// DeleteEntry godoc
// @Summary Delete a dictionary entry
// @Tags dictionary
// @Param id path string true "Entry ID"
// @Success 204 {object} nil
// @Router /api/dictionary/{id} [delete]
func (c *DictionaryController) DeleteEntry(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteEntry(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// ListRecords godoc
// @Summary List records of a dictionary
// @Tags dictionary
// @Produce json
// @Param name path string true "Dictionary name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} RecordPage
// @Router /api/dictionary/{name}/records [get]
func (c *DictionaryController) ListRecords(ctx *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(ctx.Query("limit"), 10, 64)
	offset, _ := strconv.ParseInt(ctx.Query("offset"), 10, 64)

	// Remaining query params become equality filters on declared fields.
	filters := map[string]interface{}{}
	for key, values := range ctx.Queries() {
		if key == "limit" || key == "offset" {
			continue
		}
		filters[key] = values
	}

	page, err := c.Service.ListRecords(ctx.UserContext(), ctx.Params("name"), RecordQuery{
		Filters: filters,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrInvalidEntry) {
			status = fiber.StatusUnprocessableEntity
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(page)
}

// GetRecord godoc
// @Summary Get one record of a dictionary by key
// @Tags dictionary
// @Produce json
// @Param name path string true "Dictionary name"
// @Param key path string true "Record key"
// @Success 200 {object} RecordDetail
// @Router /api/dictionary/{name}/records/{key} [get]
func (c *DictionaryController) GetRecord(ctx *fiber.Ctx) error {
	detail, err := c.Service.GetRecord(ctx.UserContext(), ctx.Params("name"), ctx.Params("key"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(detail)
}
