package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"pongarena/internal/config"
	"pongarena/internal/db"
	"pongarena/internal/engine"
	"pongarena/internal/session"
	"pongarena/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	tournamentStore := store.NewTournamentStore(database)
	tournamentEngine := engine.New(database, tournamentStore, engine.WithLogger(logger))

	registry := session.NewRegistry()
	srv := &server{
		cfg:      cfg,
		log:      logger,
		engine:   tournamentEngine,
		registry: registry,
	}
	srv.matchmaker = session.NewMatchmaker(registry, srv.newCasualSession)

	logger.Info("server starting", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.routes()); err != nil {
		log.Fatal(err)
	}
}
