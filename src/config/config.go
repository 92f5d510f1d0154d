package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// SchedulerConfig holds the task processor knobs. Loaded from the
// SCHEDULER_ prefixed environment.
type SchedulerConfig struct {
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"60s"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BatchSize      int           `envconfig:"BATCH_SIZE" default:"100"`
	DisputeTimeout time.Duration `envconfig:"DISPUTE_TIMEOUT" default:"48h"`
}

// FeeConfig holds the platform fee rate applied when funds enter
// escrow. The rate is a fraction of the gross amount.
type FeeConfig struct {
	Rate float64 `envconfig:"RATE" default:"0.10"`
}

func GetSchedulerConfig() SchedulerConfig {
	var c SchedulerConfig
	if err := envconfig.Process("SCHEDULER", &c); err != nil {
		log.Printf("Error reading scheduler config, using defaults: %s\n", err.Error())
		return SchedulerConfig{PollInterval: 60 * time.Second, MaxAttempts: 3, BatchSize: 100, DisputeTimeout: 48 * time.Hour}
	}
	return c
}

func GetFeeConfig() FeeConfig {
	var c FeeConfig
	if err := envconfig.Process("PLATFORM_FEE", &c); err != nil {
		log.Printf("Error reading fee config, using default: %s\n", err.Error())
		return FeeConfig{Rate: 0.10}
	}
	return c
}
