package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MigrationsPath  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type Config struct {
	App struct {
		Port string
	}
	Postgres PostgresConfig
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. Database coordinates are required; the rest has defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getenvDefault("APP_PORT", "8080")

	var err error
	cfg.Postgres.Host, err = getenvRequired("DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.Postgres.Port, err = getenvRequired("DB_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Postgres.User, err = getenvRequired("DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.Postgres.Password, err = getenvRequired("DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.Postgres.DBName, err = getenvRequired("DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.Postgres.SSLMode = getenvDefault("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getenvDefault("MIGRATIONS_PATH", "migrations")
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
