package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/librarymanager/internal/httpapi"
	"github.com/ahinestrog/librarymanager/internal/logging"
)

func main() {
	cfg := LoadConfig()
	logger := logging.Init("auth", cfg.Log)
	if cfg.IdentityKey == "" {
		logger.Warn().Msg("IDENTITY_API_KEY is empty; provider calls will be rejected")
	}
	logger.Info().Str("http", cfg.HTTPAddr).Str("identity", cfg.IdentityURL).Msg("starting auth service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewRedisRoles(cfg.RedisURL)
	must(err)
	defer store.Close()

	router := httpapi.NewRouter(logger, store)
	roles := NewCachedRoles(store, cfg.RoleCacheSize, cfg.RoleCacheTTL)
	NewAuthServer(NewToolkit(cfg.IdentityURL, cfg.IdentityKey), roles, cfg.SecureCookie).Routes(router)

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Warn().Msg("shutting down...")
		cancel()
	}()

	must(httpapi.Run(ctx, cfg.HTTPAddr, router, cfg.ShutdownGrace))
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
