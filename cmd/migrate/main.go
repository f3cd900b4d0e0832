package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/joao-fontenele/storefront/internal/config"
	"github.com/joao-fontenele/storefront/internal/schema"
)

const usage = "usage: migrate [-steps n] <up|down|version|force VERSION>"

var errUsage = errors.New(usage)

type command struct {
	name    string
	steps   int
	version int
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(os.Args[1:], logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, logger *slog.Logger) error {
	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadMigrate()
	if err != nil {
		return err
	}

	migrator, err := schema.Open(cfg.SourceURL, cfg.DB.URL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	switch cmd.name {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down(cmd.steps)
	case "force":
		return migrator.Force(cmd.version)
	default:
		v, err := migrator.Version()
		if err != nil {
			return err
		}
		if !v.Applied {
			logger.Info("no migrations applied yet")
			return nil
		}
		logger.Info("current migration version", "version", v.Number, "dirty", v.Dirty)
		return nil
	}
}

func parseCommand(args []string) (command, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	steps := fs.Int("steps", 1, "number of migrations to roll back with down")
	if err := fs.Parse(args); err != nil {
		return command{}, fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return command{}, errUsage
	}

	cmd := command{name: rest[0], steps: *steps}
	switch cmd.name {
	case "up", "version":
		if len(rest) != 1 {
			return command{}, errUsage
		}
	case "down":
		if len(rest) != 1 || cmd.steps <= 0 {
			return command{}, errUsage
		}
	case "force":
		if len(rest) != 2 {
			return command{}, errUsage
		}
		v, err := strconv.Atoi(rest[1])
		if err != nil || v < -1 {
			return command{}, fmt.Errorf("%w: invalid version %q", errUsage, rest[1])
		}
		cmd.version = v
	default:
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
	}
	return cmd, nil
}
