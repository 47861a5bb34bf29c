package engine

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"shop-backend/internal/metadata"
)

type Handler struct {
	service  *Service
	importer *Importer
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc, importer: NewImporter(svc)}
}

// List handles GET /detail/:kind
func (h *Handler) List(c *fiber.Ctx) error {
	kind, err := h.resolveKind(c)
	if err != nil {
		return err
	}

	recs, err := h.service.List(c.UserContext(), kind.Name)
	if err != nil {
		return toAppError(err, kind.Name, "")
	}
	return c.JSON(recs)
}

// Get handles GET /detail/:kind/:id
func (h *Handler) Get(c *fiber.Ctx) error {
	kind, err := h.resolveKind(c)
	if err != nil {
		return err
	}

	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return RecordNotFoundError(kind.Name, raw)
	}

	rec, err := h.service.Get(c.UserContext(), kind.Name, id)
	if err != nil {
		return toAppError(err, kind.Name, raw)
	}
	return c.JSON(rec)
}

// Delete handles DELETE /detail/:kind/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	kind, err := h.resolveKind(c)
	if err != nil {
		return err
	}

	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return RecordNotFoundError(kind.Name, raw)
	}

	if err := h.service.Delete(c.UserContext(), kind.Name, id); err != nil {
		return toAppError(err, kind.Name, raw)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Import handles PUT /import
func (h *Handler) Import(c *fiber.Ctx) error {
	out, err := h.importer.Import(c.UserContext(), c.Body())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Products handles GET /product?search=&productattributes=
func (h *Handler) Products(c *fiber.Ctx) error {
	recs, err := h.service.SearchProducts(c.UserContext(), ProductQuery{
		Search:            c.Query("search"),
		ProductAttributes: c.Query("productattributes"),
	})
	if err != nil {
		return toAppError(err, metadata.KindProduct, "")
	}
	return c.JSON(recs)
}

// resolveKind matches the :kind parameter case-insensitively, so
// /detail/product/ and /detail/Product/ are the same collection.
func (h *Handler) resolveKind(c *fiber.Ctx) (*metadata.Kind, error) {
	name := c.Params("kind")
	kind, ok := h.service.Registry().Resolve(name)
	if !ok {
		return nil, KindNotFoundError(name)
	}
	return kind, nil
}
