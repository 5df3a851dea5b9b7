package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/windfall/lingo_service/internal/logger"
)

func main() {
	var (
		direction string
		steps     int
		dbURL     string
		path      string
	)

	flag.StringVar(&direction, "direction", "up", "Migration direction: up, down, force or version")
	flag.IntVar(&steps, "steps", 0, "Number of migrations to run (0 = all), or the version for force")
	flag.StringVar(&dbURL, "db", "", "Database URL (or set DATABASE_URL env var)")
	flag.StringVar(&path, "path", "migrations", "Path to migration files")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(os.Getenv("LOG_LEVEL"), "console")

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal().Msg("Database URL is required. Set -db flag or DATABASE_URL env var")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", path), dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate instance")
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "force":
		// clears the dirty flag after a failed migration was fixed by hand
		if steps == 0 {
			log.Fatal().Msg("Force requires -steps to specify version")
		}
		err = m.Force(steps)
	case "version":
	default:
		log.Fatal().Str("direction", direction).Msg("Unknown direction (use up, down, force or version)")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.Fatal().Err(verr).Msg("Failed to read migration version")
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Uint("version", version).Msg("No migrations to apply")
		return
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Str("direction", direction).Msg("Migration finished")
}
