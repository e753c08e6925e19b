// Command treasurehunt hosts the treasure hunt PWA: player registration,
// clue scanning, the leaderboard, and the passthrough fetch relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dverhoef/treasurehunt/handlers"
	"github.com/dverhoef/treasurehunt/pkg/hunt"
	"github.com/dverhoef/treasurehunt/pkg/logging"
	"github.com/dverhoef/treasurehunt/pkg/names"
	"github.com/dverhoef/treasurehunt/pkg/store"
	"github.com/dverhoef/treasurehunt/views"
)

func main() {
	parser := argparse.NewParser("treasurehunt", "Treasure hunt PWA host")
	addr := parser.String("a", "addr", &argparse.Options{
		Help:    "listen address",
		Default: getenv("HUNT_ADDR", ":8080"),
	})
	dbPath := parser.String("d", "db", &argparse.Options{
		Help:    "path to the SQLite player database",
		Default: getenv("HUNT_DB", "treasure_hunt.db"),
	})
	cluesPath := parser.String("c", "clues", &argparse.Options{
		Help:    "path to the clues yaml file",
		Default: getenv("HUNT_CLUES", "clues.yaml"),
	})
	dev := parser.Flag("", "dev", &argparse.Options{
		Help: "enable development logging",
	})
	resetDB := parser.Flag("", "reset-db", &argparse.Options{
		Help: "delete all player data and exit",
	})
	yes := parser.Flag("y", "yes", &argparse.Options{
		Help: "confirm destructive operations",
	})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logging.New(*dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	st, err := store.Open(*dbPath)
	if err != nil {
		logger.Fatal("failed to open player store", zap.Error(err))
	}
	defer st.Close()

	if *resetDB {
		if !*yes {
			logger.Fatal("refusing to reset the database without --yes; all player data would be lost")
		}
		if err := st.Reset(context.Background()); err != nil {
			logger.Fatal("failed to reset database", zap.Error(err))
		}
		logger.Info("database has been reset", zap.String("db", *dbPath))
		return
	}

	clues, err := hunt.Load(*cluesPath)
	if err != nil {
		logger.Fatal("the game cannot start", zap.Error(err))
	}

	sessionTTL, err := time.ParseDuration(getenv("HUNT_SESSION_TTL", "24h"))
	if err != nil {
		logger.Fatal("invalid HUNT_SESSION_TTL", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               "treasurehunt",
		Views:                 views.Engine(),
		DisableStartupMessage: true,
	})
	handlers.NewHunt(st, clues, names.NewScreen(), logger, sessionTTL).Register(app)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("serving treasure hunt",
		zap.String("addr", *addr),
		zap.String("db", *dbPath),
		zap.Int("clues", clues.Count()))
	if err := app.Listen(*addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
