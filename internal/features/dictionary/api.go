package dictionary

import (
	"go-caseflow/internal/config"
	"go-caseflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DictionaryApi struct {
	controller *DictionaryController
	roles      middleware.RoleChecker
	config     *config.Config
}

func NewDictionaryApi(controller *DictionaryController, roles middleware.RoleChecker, config *config.Config) *DictionaryApi {
	return &DictionaryApi{controller: controller, roles: roles, config: config}
}

func (h *DictionaryApi) Setup(app *fiber.App) {
	dict := app.Group("/api/dictionary", middleware.AuthMiddleware(h.config.SkipAuth))

	dict.Post("/", middleware.RequirePermission(h.roles, "dictionary", "create"), h.controller.CreateEntry)
	dict.Get("/", middleware.RequirePermission(h.roles, "dictionary", "read"), h.controller.ListEntries)
	dict.Get("/:name", middleware.RequirePermission(h.roles, "dictionary", "read"), h.controller.GetEntry)
	dict.Put("/:id", middleware.RequirePermission(h.roles, "dictionary", "update"), h.controller.UpdateEntry)
	dict.Delete("/:id", middleware.RequirePermission(h.roles, "dictionary", "delete"), h.controller.DeleteEntry)
	dict.Get("/:name/records", middleware.RequirePermission(h.roles, "dictionary", "read"), h.controller.ListRecords)
	dict.Get("/:name/records/:key", middleware.RequirePermission(h.roles, "dictionary", "read"), h.controller.GetRecord)
}
