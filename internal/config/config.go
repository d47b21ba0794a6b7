// Package config loads relayer configuration from environment
// variables, with one struct per subsystem.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the relayer.
type Config struct {
	Database Database
	Evm      Evm
	Object   Object
	API      API
	Relayer  Relayer
}

// Database configures the Postgres connection used by the order
// store and deadline scheduler.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string for this database config.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Evm configures the source-chain adapter.
type Evm struct {
	HTTPUrl              string
	WSUrl                string
	PrivateKey           string
	Address              string // derived from private key if empty
	GasLimit             uint64
	GasPriceGwei         int64
	EscrowFactoryAddress string
	ChainID              int64
	BlockTime            int
	FinalityDepth        uint64
	SafetyDepositWei     string
}

// Object configures the destination object-chain adapter (Sui-style).
type Object struct {
	RPCUrl         string
	PrivateKey     string
	Address        string
	NetworkID      uint64
	GasBudget      uint64
	PackageID      string
	CheckpointTime int
	FinalityDepth  uint64
}

// API configures the HTTP façade.
type API struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Relayer configures the order coordinator and deadline scheduler.
type Relayer struct {
	MaxConcurrentOrders     int
	OrderTimeout            time.Duration
	PollInterval            time.Duration
	RetryInterval           time.Duration
	MaxRetries              int
	DefaultSrcTimeoutOffset uint64
	DefaultDstTimeoutOffset uint64
	EventWatcherBufferSize  int
	LogLevel                string
}

// Load reads configuration from the environment, returning an error on
// the first missing required variable instead of panicking, so main
// can fail fast with a clean exit.
func Load() (*Config, error) {
	var errs []error
	req := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			errs = append(errs, fmt.Errorf("required environment variable %s is not set", key))
		}
		return v
	}

	cfg := &Config{
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "relayer"),
			Password: req("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "relayer"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Evm: Evm{
			HTTPUrl:              req("EVM_HTTP_URL"),
			WSUrl:                getEnv("EVM_WS_URL", ""),
			PrivateKey:           req("EVM_PRIVATE_KEY"),
			Address:              getEnv("EVM_ADDRESS", ""),
			GasLimit:             getEnvUint64("EVM_GAS_LIMIT", 500000),
			GasPriceGwei:         getEnvInt64("EVM_GAS_PRICE_GWEI", 1),
			EscrowFactoryAddress: req("EVM_ESCROW_FACTORY_ADDRESS"),
			ChainID:              getEnvInt64("EVM_CHAIN_ID", 1),
			BlockTime:            getEnvInt("EVM_BLOCK_TIME", 1),
			FinalityDepth:        getEnvUint64("EVM_FINALITY_DEPTH", 1),
			SafetyDepositWei:     getEnv("EVM_SAFETY_DEPOSIT_WEI", "1000000000000000"),
		},
		Object: Object{
			RPCUrl:         req("OBJECT_RPC_URL"),
			PrivateKey:     req("OBJECT_PRIVATE_KEY"),
			Address:        getEnv("OBJECT_ADDRESS", ""),
			NetworkID:      getEnvUint64("OBJECT_NETWORK_ID", 2),
			GasBudget:      getEnvUint64("OBJECT_GAS_BUDGET", 1000000000),
			PackageID:      req("OBJECT_PACKAGE_ID"),
			CheckpointTime: getEnvInt("OBJECT_CHECKPOINT_TIME", 4),
			FinalityDepth:  getEnvUint64("OBJECT_FINALITY_DEPTH", 1),
		},
		API: API{
			Port:            getEnvInt("API_PORT", 8080),
			Host:            getEnv("API_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("API_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("API_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("API_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Relayer: Relayer{
			MaxConcurrentOrders:     getEnvInt("RELAYER_MAX_CONCURRENT_ORDERS", 100),
			OrderTimeout:            getEnvDuration("RELAYER_ORDER_TIMEOUT", 1*time.Hour),
			PollInterval:            getEnvDuration("RELAYER_POLL_INTERVAL", 5*time.Second),
			RetryInterval:           getEnvDuration("RELAYER_RETRY_INTERVAL", 30*time.Second),
			MaxRetries:              getEnvInt("RELAYER_MAX_RETRIES", 3),
			DefaultSrcTimeoutOffset: getEnvUint64("RELAYER_DEFAULT_SRC_TIMEOUT_OFFSET", 420),
			DefaultDstTimeoutOffset: getEnvUint64("RELAYER_DEFAULT_DST_TIMEOUT_OFFSET", 180),
			EventWatcherBufferSize:  getEnvInt("RELAYER_EVENT_WATCHER_BUFFER_SIZE", 100),
			LogLevel:                getEnv("RELAYER_LOG_LEVEL", "INFO"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
