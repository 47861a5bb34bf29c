package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"shop-backend/internal/auth"
	"shop-backend/internal/config"
	"shop-backend/internal/mail"
	"shop-backend/internal/metadata"
	"shop-backend/internal/server"
	"shop-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Build the kind registry
	reg, err := metadata.NewCatalogRegistry()
	if err != nil {
		log.Fatalf("Failed to build registry: %v", err)
	}

	// 3. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 4. Bootstrap system tables and kind tables
	if err := db.Bootstrap(ctx, reg); err != nil {
		log.Fatalf("Failed to bootstrap database: %v", err)
	}
	log.Printf("Tables ready for %d kinds", len(reg.Kinds()))

	// 5. Token blacklist
	var rdb *redis.Client
	if cfg.Auth.Blacklist == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("Redis connected")
	}
	blacklist, err := auth.NewBlacklist(cfg.Auth.Blacklist, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create token blacklist: %v", err)
	}

	// 6. Mailer
	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to create mailer: %v", err)
	}

	// 7. Create Fiber app with all routes
	app := server.New(server.Deps{
		Config:    cfg,
		Store:     db,
		Registry:  reg,
		Blacklist: blacklist,
		Mailer:    mailer,
	})

	// 8. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Fiber.Listen(addr))
}
