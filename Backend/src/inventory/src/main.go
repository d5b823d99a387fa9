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
	logger := logging.Init("inventory", cfg.Log)
	logger.Info().
		Str("http", cfg.HTTPAddr).
		Str("grpc", cfg.GRPCAddr).
		Str("db", cfg.DB.Path).
		Bool("rabbit", cfg.RabbitURL != "").
		Int("low_stock_threshold", cfg.LowStockThreshold).
		Msg("starting inventory service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(ctx, cfg.DB)
	must(err)
	defer db.Close()

	if cfg.SeedOnStart {
		n, err := storage.Seed(ctx, db)
		must(err)
		logger.Info().Int("books", n).Msg("seeded initial stock")
	}

	repo := NewRepository(db)
	rabbit, err := events.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, "inventory", logger)
	must(err)
	defer rabbit.Close()
	if rabbit != nil {
		watcher := NewLowStockWatcher(repo, rabbit, cfg.LowStockThreshold, logger)
		must(rabbit.ConsumeTopic(ctx, cfg.WatchQueue, []string{events.RKOrderPlaced}, watcher.Handle))
		logger.Info().Str("queue", cfg.WatchQueue).Msg("rabbit consumers started")
	}

	router := httpapi.NewRouter(logger, db)
	(&InventoryServer{Repo: repo, Events: rabbit, Threshold: cfg.LowStockThreshold}).Routes(router)

	hs := health.New("inventory", logger)
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
