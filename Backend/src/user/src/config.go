package main

import (
	"time"

	"github.com/ahinestrog/librarymanager/internal/envcfg"
	"github.com/ahinestrog/librarymanager/internal/logging"
	"github.com/ahinestrog/librarymanager/internal/storage"
)

type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	DB             storage.Config
	RabbitURL      string
	RabbitExchange string
	BcryptCost     int
	Log            logging.Config
	ShutdownGrace  time.Duration
	HealthEvery    time.Duration
}

func LoadConfig() *Config {
	envcfg.Load()
	return &Config{
		HTTPAddr:       envcfg.Get("USER_HTTP_ADDR", ":8085"),
		GRPCAddr:       envcfg.Get("USER_GRPC_ADDR", ":50055"),
		DB:             storage.ConfigFromEnv(),
		RabbitURL:      envcfg.Get("RABBIT_URL", ""),
		RabbitExchange: envcfg.Get("RABBIT_EXCHANGE", "domain_events"),
		BcryptCost:     envcfg.Int("BCRYPT_COST", 10),
		Log:            logging.ConfigFromEnv(),
		ShutdownGrace:  envcfg.Duration("SHUTDOWN_GRACE", 10*time.Second),
		HealthEvery:    envcfg.Duration("HEALTH_INTERVAL", 15*time.Second),
	}
}
