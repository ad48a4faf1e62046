package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every component receives what it needs from here; nothing else reads the environment.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds the optional bar-cache Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PipelineConfig holds validation pipeline defaults.
// Gate thresholds live here so every run is reproducible from config alone.
type PipelineConfig struct {
	// Instrument price granularity; the cost gate steps slippage in ticks of this size.
	TickSize float64

	// Cost realism gate
	CostSlippageTicks []int // slippage scenarios, in ticks
	CostMinPositive   int   // scenarios that must keep expectancy positive

	// Adversarial gate
	AttackSeed       int64
	AttackNoiseTicks float64 // execution noise amplitude in ticks

	// Regime gate
	RegimeMinProfitableFrac float64 // fraction of regimes that must be individually profitable
	RegimeMaxProfitShare    float64 // ceiling on a single regime's share of total profit
	RegimeMinTrades         int     // regimes smaller than this are ignored for the fraction

	// Worker pool
	WorkerConcurrency int
	WorkerRatePerSec  float64 // backtest launches per second, caps DB pressure
}

// Load reads configuration from environment variables.
// This function is the only caller of os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8097"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Pipeline: PipelineConfig{
			TickSize:                getEnvAsFloat("PIPELINE_TICK_SIZE", 0.01),
			CostSlippageTicks:       []int{1, 2, 3},
			CostMinPositive:         getEnvAsInt("PIPELINE_COST_MIN_POSITIVE", 2),
			AttackSeed:              int64(getEnvAsInt("PIPELINE_ATTACK_SEED", 1337)),
			AttackNoiseTicks:        getEnvAsFloat("PIPELINE_ATTACK_NOISE_TICKS", 1.0),
			RegimeMinProfitableFrac: getEnvAsFloat("PIPELINE_REGIME_MIN_FRAC", 0.5),
			RegimeMaxProfitShare:    getEnvAsFloat("PIPELINE_REGIME_MAX_SHARE", 0.7),
			RegimeMinTrades:         getEnvAsInt("PIPELINE_REGIME_MIN_TRADES", 5),
			WorkerConcurrency:       getEnvAsInt("WORKER_CONCURRENCY", 4),
			WorkerRatePerSec:        getEnvAsFloat("WORKER_RATE_PER_SEC", 8),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.TickSize <= 0 {
		return fmt.Errorf("PIPELINE_TICK_SIZE must be > 0")
	}
	if c.Pipeline.RegimeMaxProfitShare <= 0 || c.Pipeline.RegimeMaxProfitShare > 1 {
		return fmt.Errorf("PIPELINE_REGIME_MAX_SHARE must be in (0, 1]")
	}
	if c.Pipeline.RegimeMinProfitableFrac < 0 || c.Pipeline.RegimeMinProfitableFrac > 1 {
		return fmt.Errorf("PIPELINE_REGIME_MIN_FRAC must be in [0, 1]")
	}
	if c.Pipeline.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
