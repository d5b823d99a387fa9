package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/health"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
	"github.com/ahinestrog/librarymanager/internal/logging"
	"github.com/ahinestrog/librarymanager/internal/storage"
)

func main() {
	cfg := LoadConfig()
	logger := logging.Init("catalog", cfg.Log)
	logger.Info().
		Str("http", cfg.HTTPAddr).
		Str("grpc", cfg.GRPCAddr).
		Str("db", cfg.DB.Path).
		Msg("starting catalog service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(ctx, cfg.DB)
	must(err)
	defer db.Close()

	rb, err := events.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, "catalog", logger)
	must(err)
	defer rb.Close()

	repo := NewSQLiteRepo(db)
	router := httpapi.NewRouter(logger, db)
	NewCatalogServer(repo, NewService(repo, rb, logger)).Routes(router)

	hs := health.New("catalog", logger)
	go hs.Monitor(ctx, db, cfg.HealthEvery)
	go func() {
		if err := hs.ListenAndServe(cfg.GRPCAddr); err != nil {
			logger.Error().Err(err).Msg("grpc health server stopped")
		}
	}()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Warn().Msg("shutting down...")
		hs.Stop()
		cancel()
	}()

	must(httpapi.Run(ctx, cfg.HTTPAddr, router, cfg.ShutdownGrace))
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
