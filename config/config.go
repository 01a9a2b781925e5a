// Package config loads ledger settings from an optional config file and
// LEDGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // ledger.timezone must resolve on hosts without zoneinfo

	"github.com/spf13/viper"

	"github.com/warp/collection-ledger/logger"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Client   ClientConfig
	Ledger   LedgerConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	SubmitRate     float64 // submits per second per debt, 0 disables
	SubmitBurst    int
	StatusInterval time.Duration // overdue sweep period, 0 disables
}

type DatabaseConfig struct {
	Path string
}

type ClientConfig struct {
	APIURL  string
	Timeout time.Duration
}

type LedgerConfig struct {
	Timezone  string
	Precision int32
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration. An empty path skips the config file; a missing
// file at a given path is an error. Environment variables override the file,
// e.g. LEDGER_SERVER_PORT or LEDGER_LEDGER_PRECISION.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.submit_rate", 2.0)
	v.SetDefault("server.submit_burst", 5)
	v.SetDefault("server.status_interval", "1h")
	v.SetDefault("database.path", "./data/ledger.db")
	v.SetDefault("client.api_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "10s")
	v.SetDefault("ledger.timezone", "Local")
	v.SetDefault("ledger.precision", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
			SubmitRate:     v.GetFloat64("server.submit_rate"),
			SubmitBurst:    v.GetInt("server.submit_burst"),
			StatusInterval: v.GetDuration("server.status_interval"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Client: ClientConfig{
			APIURL:  v.GetString("client.api_url"),
			Timeout: v.GetDuration("client.timeout"),
		},
		Ledger: LedgerConfig{
			Timezone:  v.GetString("ledger.timezone"),
			Precision: v.GetInt32("ledger.precision"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Server.StatusInterval < 0 {
		errs = append(errs, fmt.Errorf("server.status_interval must not be negative, got %s", c.Server.StatusInterval))
	}
	if c.Ledger.Precision < 0 {
		errs = append(errs, fmt.Errorf("ledger.precision must not be negative, got %d", c.Ledger.Precision))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves the ledger timezone that decides which calendar day a
// submit belongs to.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.timezone %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// GetLoggerConfig returns the logger configuration.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	lc.Output = c.Log.Output
	return lc
}
