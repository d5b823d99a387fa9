package main

import (
	"time"

	"github.com/ahinestrog/librarymanager/internal/envcfg"
	"github.com/ahinestrog/librarymanager/internal/logging"
	"github.com/ahinestrog/librarymanager/internal/storage"
)

type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	DB                storage.Config
	RabbitURL         string
	RabbitExchange    string
	WatchQueue        string
	LowStockThreshold int
	SeedOnStart       bool
	Log               logging.Config
	ShutdownGrace     time.Duration
	HealthEvery       time.Duration
}

func LoadConfig() Config {
	envcfg.Load()
	return Config{
		HTTPAddr:          envcfg.Get("INVENTORY_HTTP_ADDR", ":8084"),
		GRPCAddr:          envcfg.Get("INVENTORY_GRPC_ADDR", ":50054"),
		DB:                storage.ConfigFromEnv(),
		RabbitURL:         envcfg.Get("RABBIT_URL", ""),
		RabbitExchange:    envcfg.Get("RABBIT_EXCHANGE", "domain_events"),
		WatchQueue:        envcfg.Get("INVENTORY_WATCH_QUEUE", "inventory.low_stock_watch"),
		LowStockThreshold: envcfg.Int("LOW_STOCK_THRESHOLD", 3),
		SeedOnStart:       envcfg.Bool("INVENTORY_SEED", false),
		Log:               logging.ConfigFromEnv(),
		ShutdownGrace:     envcfg.Duration("SHUTDOWN_GRACE", 10*time.Second),
		HealthEvery:       envcfg.Duration("HEALTH_INTERVAL", 15*time.Second),
	}
}
