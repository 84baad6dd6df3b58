package config

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/bountyhive/bountyhive-backend/pkg/env"
)

type Config struct {
	devMode bool

	// Marketplace API port
	apiPort string

	// ScyllaDB connection
	databaseHost     string
	databaseHostPort string

	// Redis projection cache
	redisAddr     string
	redisPassword string
	redisDB       int
	cacheTTL      time.Duration

	// Collaborator endpoints
	escrowURL     string
	escrowAPIKey  string
	oracleURL     string
	oracleAPIKey  string
	identityURL   string
	identityAPIKey string

	// Lifecycle sweep cadence
	sweepInterval time.Duration
}

var cfg Config

// Init initializes the configuration for production
func Init() error {
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	cfg = Config{
		devMode:          env.GetEnvBool("DEV_MODE", false),
		apiPort:          env.GetEnv("MARKETPLACE_API_PORT", "9010"),
		databaseHost:     env.GetEnv("DATABASE_HOST", "localhost"),
		databaseHostPort: env.GetEnv("DATABASE_HOST_PORT", "9042"),
		redisAddr:        env.GetEnv("REDIS_ADDR", "localhost:6379"),
		redisPassword:    env.GetEnv("REDIS_PASSWORD", ""),
		redisDB:          env.GetEnvInt("REDIS_DB", 0),
		cacheTTL:         env.GetEnvDuration("CACHE_TTL", 30*time.Second),
		escrowURL:        env.GetEnv("ESCROW_RPC_URL", "http://localhost:9011"),
		escrowAPIKey:     env.GetEnv("ESCROW_API_KEY", ""),
		oracleURL:        env.GetEnv("ORACLE_RPC_URL", "http://localhost:9012"),
		oracleAPIKey:     env.GetEnv("ORACLE_API_KEY", ""),
		identityURL:      env.GetEnv("IDENTITY_RPC_URL", "http://localhost:9013"),
		identityAPIKey:   env.GetEnv("IDENTITY_API_KEY", ""),
		sweepInterval:    env.GetEnvDuration("SWEEP_INTERVAL", 30*time.Second),
	}
	if err := validateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func validateConfig() error {
	if !env.IsValidPort(cfg.apiPort) {
		return fmt.Errorf("invalid marketplace api port: %s", cfg.apiPort)
	}
	if !env.IsValidPort(cfg.databaseHostPort) {
		return fmt.Errorf("invalid database port: %s", cfg.databaseHostPort)
	}
	if !env.IsValidURL(cfg.escrowURL) {
		return fmt.Errorf("invalid escrow rpc url: %s", cfg.escrowURL)
	}
	if !env.IsValidURL(cfg.oracleURL) {
		return fmt.Errorf("invalid oracle rpc url: %s", cfg.oracleURL)
	}
	if !env.IsValidURL(cfg.identityURL) {
		return fmt.Errorf("invalid identity rpc url: %s", cfg.identityURL)
	}
	if cfg.sweepInterval < time.Second {
		return fmt.Errorf("sweep interval must be at least 1s")
	}
	return nil
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetAPIPort() string {
	return cfg.apiPort
}

func GetDatabaseHostAddress() string {
	return cfg.databaseHost
}

func GetDatabaseHostPort() string {
	return cfg.databaseHostPort
}

func GetRedisAddr() string {
	return cfg.redisAddr
}

func GetRedisPassword() string {
	return cfg.redisPassword
}

func GetRedisDB() int {
	return cfg.redisDB
}

func GetCacheTTL() time.Duration {
	return cfg.cacheTTL
}

func GetEscrowRPCURL() string {
	return cfg.escrowURL
}

func GetEscrowAPIKey() string {
	return cfg.escrowAPIKey
}

func GetOracleRPCURL() string {
	return cfg.oracleURL
}

func GetOracleAPIKey() string {
	return cfg.oracleAPIKey
}

func GetIdentityRPCURL() string {
	return cfg.identityURL
}

func GetIdentityAPIKey() string {
	return cfg.identityAPIKey
}

func GetSweepInterval() time.Duration {
	return cfg.sweepInterval
}
