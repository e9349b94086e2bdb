package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/logger"
	"github.com/stemsi/skilltest-backend/internal/repository"
	"github.com/stemsi/skilltest-backend/internal/seed"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "seeds/questions.yaml", "Path to the YAML question bank")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open question bank")
	}
	defer f.Close()

	bank, err := seed.Parse(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Question bank rejected")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	skillRepo := repository.NewSkillRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Printf("=== Seeding question bank from %s ===\n", path)

	var res seed.Result
	err = database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		res, err = seed.Apply(ctx, tx, skillRepo, questionRepo, bank)
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed; nothing was written")
	}

	fmt.Printf("Seed completed! %d skills, %d questions, %d options.\n", res.Skills, res.Questions, res.Options)
}
