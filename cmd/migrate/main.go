package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/logger"
)

const usage = `Usage: migrate [flags] <command>
Commands:
  up            apply every pending migration
  down          roll back every migration
  steps <n>     apply n migrations, or roll back |n| when negative
  version       print the current version
  force <v>     set the version without running migrations (-1 clears it)
Flags:`

// command is one parsed invocation. N is the step count or forced version.
type command struct {
	Name string
	N    int
}

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(v int) error
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	var migrationDir string
	flag.StringVar(&migrationDir, "path", cfg.MigrationsPath, "Path to migration files (MIGRATIONS_PATH)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Migration failed to initialize")
	}
	m.Log = migrateLogger{log: log}

	runErr := run(m, cmd, log)
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Failed to close migrator")
	}
	if runErr != nil {
		log.Error().Err(runErr).Str("command", cmd.Name).Msg("Migration failed")
		os.Exit(1)
	}
}

// parseCommand validates the positional arguments.
func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}

	cmd := command{Name: args[0]}
	switch cmd.Name {
	case "up", "down", "version":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.Name)
		}
		return cmd, nil
	case "steps", "force":
		if len(args) != 2 {
			return command{}, fmt.Errorf("%s requires exactly one numeric argument", cmd.Name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: invalid number %q", cmd.Name, args[1])
		}
		if cmd.Name == "steps" && n == 0 {
			return command{}, errors.New("steps: n must not be zero")
		}
		if cmd.Name == "force" && n < -1 {
			return command{}, fmt.Errorf("force: invalid version %d", n)
		}
		cmd.N = n
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.Name)
	}
}

// run executes cmd. Having nothing to migrate is not an error.
func run(m migrator, cmd command, log zerolog.Logger) error {
	var err error
	switch cmd.Name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(cmd.N)
	case "force":
		err = m.Force(cmd.N)
	case "version":
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("command", cmd.Name).Msg("No change")
		err = nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info().Str("command", cmd.Name).Msg("No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	log.Info().Str("command", cmd.Name).Uint("version", version).Bool("dirty", dirty).Msg("Migration state")
	return nil
}

// migrateLogger routes golang-migrate's progress output through zerolog.
type migrateLogger struct {
	log zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}
