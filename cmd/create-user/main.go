package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/logger"
	"github.com/stemsi/skilltest-backend/internal/model"
	"github.com/stemsi/skilltest-backend/internal/repository"
	"github.com/stemsi/skilltest-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	var roleFlag string
	flag.StringVar(&roleFlag, "role", string(model.RoleAdmin), "Role of the new user (user or admin)")
	flag.Parse()

	role := model.Role(roleFlag)
	if role != model.RoleUser && role != model.RoleAdmin {
		fmt.Printf("Error: unknown role %q\n", roleFlag)
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

	// Registration never touches Redis.
	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), nil)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("=== Create New User (%s) ===\n", role)

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := authService.Register(ctx, model.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, role)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			fmt.Println("Error: username or email already registered")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! User '%s' (%s) created with ID: %d, role: %s\n", user.Username, user.Email, user.ID, user.Role)
}
