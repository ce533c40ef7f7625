// Package main seeds the default mill catalog and role mappings and prints
// a development access token.
package main

import (
	"context"
	"fmt"
	"os"

	"oilmill/internal/app"
	"oilmill/internal/config"
	appctx "oilmill/internal/core/context"
	"oilmill/internal/domain/auth"
	"oilmill/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "seed", Roles: []string{appctx.RoleAdmin}})

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	rep, err := Seed(ctx, a, os.Getenv("SEED_DEMO_DATA") == "true")
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}
	log.Infow("catalog seeded", "created", rep.Created, "existing", rep.Existing, "mapped", rep.Mapped)

	if cfg.IsProduction() {
		return
	}

	jwt := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret, cfg.JWTIssuer))
	token, expires, err := jwt.GenerateAccessToken("dev-admin", "admin@oilmill.local", []string{appctx.RoleAdmin})
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}
	log.Infow("development token issued", "expires_at", expires)
	fmt.Println(token)
}
