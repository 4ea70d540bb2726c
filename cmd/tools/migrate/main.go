package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"

	"github.com/noah-isme/backend-lavado/internal/config"
	"github.com/noah-isme/backend-lavado/internal/db"
	"github.com/noah-isme/backend-lavado/internal/obs"
)

const usage = `usage: migrate <command>

commands:
  up            apply all pending migrations
  down [n]      roll back n migrations (default 1)
  version       print the current schema version
  force <v>     mark version v as clean after a failed migration`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "migrate").Logger()

	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			if steps, err = strconv.Atoi(flag.Arg(1)); err != nil || steps <= 0 {
				logger.Fatal().Str("steps", flag.Arg(1)).Msg("steps must be a positive integer")
			}
		}
		err = m.Steps(-steps)
	case "force":
		if flag.NArg() < 2 {
			logger.Fatal().Msg("force needs a version")
		}
		v, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			logger.Fatal().Err(convErr).Msg("parse version")
		}
		err = m.Force(v)
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("migration failed")
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info().Msg("no migrations applied")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("read schema version")
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
}
