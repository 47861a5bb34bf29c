package auth

import (
	"github.com/gofiber/fiber/v2"

	"shop-backend/internal/engine"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	gateway *Gateway
}

func NewAuthHandler(g *Gateway) *AuthHandler {
	return &AuthHandler{gateway: g}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body Registration
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	user, err := h.gateway.Register(c.UserContext(), body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"email":    user.Email,
		"username": user.Username,
	})
}

// VerifyEmail handles GET /email-verify?token=...
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.gateway.Verify(c.UserContext(), c.Query("token")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"email": "Overeno"})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body Credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	res, err := h.gateway.Login(c.UserContext(), body)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	if err := h.gateway.Logout(c.UserContext(), body.Refresh); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ObtainPair handles POST /api/token.
func (h *AuthHandler) ObtainPair(c *fiber.Ctx) error {
	var body Credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	pair, err := h.gateway.ObtainPair(c.UserContext(), body)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

// Refresh handles POST /api/token/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}

	access, err := h.gateway.Refresh(c.UserContext(), body.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"access": access})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app. Only
// logout needs an access token.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler, requireAuth fiber.Handler) {
	app.Post("/register", h.Register)
	app.Get("/email-verify", h.VerifyEmail)
	app.Post("/login", h.Login)
	app.Post("/logout", requireAuth, h.Logout)

	token := app.Group("/api/token")
	token.Post("/", h.ObtainPair)
	token.Post("/refresh", h.Refresh)
}
