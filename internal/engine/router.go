package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the record, import and product routes. requireAuth
// guards the import, requireStaff additionally guards deletion.
func RegisterRoutes(app *fiber.App, h *Handler, requireAuth, requireStaff fiber.Handler) {
	detail := app.Group("/detail")
	detail.Get("/:kind", h.List)
	detail.Get("/:kind/:id", h.Get)
	detail.Delete("/:kind/:id", requireAuth, requireStaff, h.Delete)

	app.Put("/import", requireAuth, h.Import)
	app.Get("/product", h.Products)
}
