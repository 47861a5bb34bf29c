package admin

import (
	"github.com/gofiber/fiber/v2"

	"shop-backend/internal/engine"
	"shop-backend/internal/metadata"
)

type Handler struct {
	service *engine.Service
}

func NewHandler(svc *engine.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterAdminRoutes mounts the staff-only admin routes.
func RegisterAdminRoutes(app *fiber.App, h *Handler, requireAuth, requireStaff fiber.Handler) {
	admin := app.Group("/admin", requireAuth, requireStaff)

	admin.Get("/kinds", h.ListKinds)
	admin.Get("/kinds/:name", h.GetKind)
	admin.Post("/products/publish", h.PublishProducts)
}

// --- Kind Endpoints ---

func (h *Handler) ListKinds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Registry().Kinds()})
}

func (h *Handler) GetKind(c *fiber.Ctx) error {
	name := c.Params("name")
	kind, ok := h.service.Registry().Resolve(name)
	if !ok {
		return engine.KindNotFoundError(name)
	}
	return c.JSON(fiber.Map{"data": kind})
}

// --- Product Actions ---

// PublishProducts marks the selected products published.
func (h *Handler) PublishProducts(c *fiber.Ctx) error {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if len(body.IDs) == 0 {
		fe := metadata.FieldErrors{}
		fe.Add("ids", "This list may not be empty.")
		return engine.ValidationError(fe)
	}

	n, err := h.service.PublishProducts(c.UserContext(), body.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}
