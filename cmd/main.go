package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/config"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/db"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/handlers"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	api "github.com/Toradamon1223/AutomaticMatchingSystem-sub000/routes"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	entrantRepo := repositories.NewPostgresEntrantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	logger.Info("repositories initialized")

	txRunner := services.NewSQLTxRunner(dbConn)
	locks := services.NewLockTable()

	standingsService := services.NewStandingsService(entrantRepo, matchRepo, cfg.StandingsBatchSize, wsHub, logger)
	standingsQueue := services.NewStandingsQueue(standingsService, locks, logger)

	pairingService := services.NewPairingService(
		txRunner,
		entrantRepo,
		matchRepo,
		tournamentRepo,
		standingsService,
		standingsQueue,
		locks,
		services.NewShuffler(),
		wsHub,
		logger,
	)
	bracketService := services.NewBracketService(
		txRunner,
		entrantRepo,
		matchRepo,
		tournamentRepo,
		standingsQueue,
		locks,
		wsHub,
		logger,
	)
	resultService := services.NewResultService(
		txRunner,
		entrantRepo,
		matchRepo,
		standingsQueue,
		locks,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		txRunner,
		tournamentRepo,
		entrantRepo,
		matchRepo,
		locks,
		wsHub,
		logger,
	)
	logger.Info("services initialized")

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	go standingsQueue.Run(queueCtx)
	logger.Info("standings queue started")

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, bracketService)
	pairingHandler := handlers.NewPairingHandler(pairingService, tournamentService)
	standingsHandler := handlers.NewStandingsHandler(standingsService)
	matchHandler := handlers.NewMatchHandler(resultService, matchRepo)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		tournamentHandler,
		pairingHandler,
		standingsHandler,
		matchHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
