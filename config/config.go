package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App     `json:"app"     toml:"app"`
		HTTP    `json:"http"    toml:"http"`
		DB      `json:"db"      toml:"db"`
		Auth    `json:"auth"    toml:"auth"`
		Workers `json:"workers" toml:"workers"`
		Log     `json:"logger"  toml:"logger"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT" env-default:"8080"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
		// InMemory switches the store gateway to the in-process implementation.
		// Local development only; nothing survives a restart.
		InMemory bool `json:"in_memory" toml:"in_memory" env:"DB_IN_MEMORY" env-default:"false"`
	}

	// Auth points at the identity provider's admin API. Both values empty
	// disables identity deletion (profiles are still removed from the store).
	Auth struct {
		AdminAPIURL string `json:"admin_api_url" toml:"admin_api_url" env:"AUTH_ADMIN_API_URL"`
		AdminAPIKey string `json:"admin_api_key" toml:"admin_api_key" env:"AUTH_ADMIN_API_KEY"`
	}

	Workers struct {
		// Minutes before a pending deposit is reported as stale.
		PendingDepositMaxAge int `json:"pending_deposit_max_age" toml:"pending_deposit_max_age" env:"PENDING_DEPOSIT_MAX_AGE" env-default:"240"`
		// Minutes between stale-deposit scans.
		PendingDepositInterval int `json:"pending_deposit_interval" toml:"pending_deposit_interval" env:"PENDING_DEPOSIT_INTERVAL" env-default:"30"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
