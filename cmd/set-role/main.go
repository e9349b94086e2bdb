package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/logger"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/repository"
)

func main() {
	flag.Usage = func() {
		fmt.Println("Usage: set-role <username> <user|admin>")
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	username := flag.Arg(0)
	role := model.Role(flag.Arg(1))
	if role != model.RoleUser && role != model.RoleAdmin {
		fmt.Printf("Error: unknown role %q\n", role)
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	updated, err := repository.NewUserRepository(pool).UpdateRole(ctx, username, role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to update role")
	}
	if !updated {
		fmt.Printf("Error: no user named %q\n", username)
		os.Exit(1)
	}

	fmt.Printf("User '%s' now has role %s. Existing tokens keep their old role until they expire.\n", username, role)
}
