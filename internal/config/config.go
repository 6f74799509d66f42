// Package config provides configuration management for the tracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/simaogato/dca-tracker/internal/domain"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the tracker
type Config struct {
	MonthlyInvestment    float64            `toml:"monthly_investment"`
	BaseAllocation       map[string]float64 `toml:"base_allocation"`
	ClampNegativeWeights bool               `toml:"clamp_negative_weights"`
	Schedule             string             `toml:"schedule"` // cron expression for the schedule command
	Storage              StorageConfig      `toml:"storage"`
	Inputs               InputsConfig       `toml:"inputs"`
	Server               ServerConfig       `toml:"server"`
	Logging              LoggingConfig      `toml:"logging"`
}

// StorageConfig holds where portfolio state and reports are persisted
type StorageConfig struct {
	Backend        string `toml:"backend"`  // "file" or "postgres"
	DataDir        string `toml:"data_dir"` // base for relative file names
	PortfolioFile  string `toml:"portfolio_file"`
	ReportFile     string `toml:"report_file"`
	Versions       int    `toml:"versions"`         // rotated backups kept for the portfolio file
	LockStaleAfter string `toml:"lock_stale_after"` // duration after which a leftover lock is broken
	DatabaseURL    string `toml:"database_url"`
}

// InputsConfig holds the external data files consumed by the engine
type InputsConfig struct {
	MarketDataFile  string `toml:"market_data_file"`
	CorrelationFile string `toml:"correlation_file"`
}

// ServerConfig holds the gRPC query server configuration
type ServerConfig struct {
	Address string `toml:"address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
	File   string `toml:"file"`
}

// NewDefaultConfig returns a Config with the default deployment values
func NewDefaultConfig() *Config {
	base := make(map[string]float64)
	for sym, w := range domain.DefaultBaseAllocation() {
		base[string(sym)] = w.InexactFloat64()
	}

	return &Config{
		MonthlyInvestment:    50,
		BaseAllocation:       base,
		ClampNegativeWeights: true,
		Schedule:             "0 9 1 * *", // 09:00 on the first day of the month
		Storage: StorageConfig{
			Backend:        BackendFile,
			DataDir:        "data",
			PortfolioFile:  "portfolio.json",
			ReportFile:     "investment_report.json",
			Versions:       3,
			LockStaleAfter: "1h",
		},
		Inputs: InputsConfig{
			MarketDataFile:  "market_data.json",
			CorrelationFile: "correlation_report.json",
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration: defaults, then .env, then each TOML file in
// order (later files override earlier, missing files are skipped), then
// DCA_* environment overrides. The result is validated.
func Load(paths ...string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// A file that sets base_allocation replaces the table as a whole
		fileCfg := struct {
			BaseAllocation map[string]float64 `toml:"base_allocation"`
		}{}
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if fileCfg.BaseAllocation != nil {
			cfg.BaseAllocation = nil
		}

		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DCA_MONTHLY_INVESTMENT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DCA_MONTHLY_INVESTMENT %q: %w", v, err)
		}
		cfg.MonthlyInvestment = f
	}

	if v := os.Getenv("DCA_BASE_ALLOCATION"); v != "" {
		table, err := parseAllocationList(v)
		if err != nil {
			return fmt.Errorf("invalid DCA_BASE_ALLOCATION: %w", err)
		}
		cfg.BaseAllocation = table
	}

	if v := os.Getenv("DCA_CLAMP_NEGATIVE_WEIGHTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DCA_CLAMP_NEGATIVE_WEIGHTS %q: %w", v, err)
		}
		cfg.ClampNegativeWeights = b
	}

	if v := os.Getenv("DCA_SCHEDULE"); v != "" {
		cfg.Schedule = v
	}
	if v := os.Getenv("DCA_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DCA_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("DCA_GRPC_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("DCA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DCA_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("DCA_DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	} else if v := os.Getenv("DB_CONN_STR"); v != "" {
		cfg.Storage.DatabaseURL = v
	} else if cfg.Storage.DatabaseURL == "" && cfg.Storage.Backend == BackendPostgres {
		cfg.Storage.DatabaseURL = connStringFromParts()
	}
	return nil
}

// connStringFromParts builds a connection string from individual vars (Docker friendly)
func connStringFromParts() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "dca_tracker"),
	)
}

// parseAllocationList parses "BTC=0.5,ETH=0.5"
func parseAllocationList(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, weight, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected SYMBOL=WEIGHT, got %q", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", sym, err)
		}
		out[strings.TrimSpace(sym)] = f
	}
	return out, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.MonthlyInvestment <= 0 {
		return errors.New("monthly_investment must be positive")
	}

	if _, err := c.Allocation(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.PortfolioFile == "" || c.Storage.ReportFile == "" {
			return errors.New("storage file names cannot be empty")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres storage requires database_url")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Versions < 0 {
		return errors.New("storage versions cannot be negative")
	}

	if _, err := c.LockStaleAfter(); err != nil {
		return err
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}

// Allocation returns the validated base allocation
func (c *Config) Allocation() (domain.Allocation, error) {
	allocation := make(domain.Allocation, len(c.BaseAllocation))
	for name, w := range c.BaseAllocation {
		sym, err := domain.ParseSymbol(name)
		if err != nil {
			return nil, err
		}
		allocation[sym] = decimal.NewFromFloat(w)
	}
	if err := allocation.Validate(); err != nil {
		return nil, err
	}
	return allocation, nil
}

// Investment returns the monthly contribution as a currency amount
func (c *Config) Investment() decimal.Decimal {
	return decimal.NewFromFloat(c.MonthlyInvestment).Round(2)
}

// LockStaleAfter parses Storage.LockStaleAfter; empty means locks never go stale
func (c *Config) LockStaleAfter() (time.Duration, error) {
	if c.Storage.LockStaleAfter == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Storage.LockStaleAfter)
	if err != nil {
		return 0, fmt.Errorf("invalid lock_stale_after %q: %w", c.Storage.LockStaleAfter, err)
	}
	return d, nil
}

// PortfolioPath resolves the portfolio file under the data directory
func (c *Config) PortfolioPath() string { return c.resolve(c.Storage.PortfolioFile) }

// ReportPath resolves the report file under the data directory
func (c *Config) ReportPath() string { return c.resolve(c.Storage.ReportFile) }

// MarketDataPath resolves the market snapshot file under the data directory
func (c *Config) MarketDataPath() string { return c.resolve(c.Inputs.MarketDataFile) }

// CorrelationPath resolves the correlation report under the data directory
func (c *Config) CorrelationPath() string { return c.resolve(c.Inputs.CorrelationFile) }

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
