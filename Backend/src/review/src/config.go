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
	Log            logging.Config
	ShutdownGrace  time.Duration
	HealthEvery    time.Duration
}

func LoadConfig() *Config {
	envcfg.Load()
	return &Config{
		HTTPAddr:       envcfg.Get("REVIEW_HTTP_ADDR", ":8086"),
		GRPCAddr:       envcfg.Get("REVIEW_GRPC_ADDR", ":50056"),
		DB:             storage.ConfigFromEnv(),
		RabbitURL:      envcfg.Get("RABBIT_URL", ""),
		RabbitExchange: envcfg.Get("RABBIT_EXCHANGE", "domain_events"),
		Log:            logging.ConfigFromEnv(),
		ShutdownGrace:  envcfg.Duration("SHUTDOWN_GRACE", 10*time.Second),
		HealthEvery:    envcfg.Duration("HEALTH_INTERVAL", 15*time.Second),
	}
}
