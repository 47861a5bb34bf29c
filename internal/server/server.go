package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"shop-backend/internal/admin"
	"shop-backend/internal/auth"
	"shop-backend/internal/config"
	"shop-backend/internal/engine"
	"shop-backend/internal/mail"
	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

// Deps are the long-lived resources the HTTP app is built over.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Registry  *metadata.Registry
	Blacklist auth.Blacklist
	Mailer    mail.Mailer
}

// App holds the Fiber app and the services behind its handlers.
type App struct {
	Fiber   *fiber.App
	Service *engine.Service
	Tokens  *auth.Tokens
	Gateway *auth.Gateway
}

// New builds the handlers and mounts every route.
func New(d Deps) *App {
	cfg := d.Config

	svc := engine.NewService(d.Store, d.Registry)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.Auth)
	gateway := auth.NewGateway(auth.NewUserStore(d.Store), tokens, d.Blacklist, d.Mailer, cfg.Auth.VerifyURL)

	app := fiber.New(fiber.Config{
		ErrorHandler:  engine.ErrorHandler,
		StrictRouting: false,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(allowedOrigins(cfg.Server.AllowedOrigins), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authMW := auth.AuthMiddleware(tokens)
	staffMW := auth.RequireStaff()

	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(gateway), authMW)
	admin.RegisterAdminRoutes(app, admin.NewHandler(svc), authMW, staffMW)
	engine.RegisterRoutes(app, engine.NewHandler(svc), authMW, staffMW)

	return &App{Fiber: app, Service: svc, Tokens: tokens, Gateway: gateway}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
