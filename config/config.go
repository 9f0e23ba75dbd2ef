// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	// --- HTTP ---
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port string `envconfig:"PORT" default:"3000"`
	// CORSAllowOrigins is a comma-separated origin list for the dashboard frontend.
	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	// --- Database ---
	// memory keeps everything in process and is meant for local runs.
	DBDriver      string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"partnerhub"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME" default:"partnerhub"`
	DBSSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	// --- Logging ---
	LogLevel  string `envconfig:"APP_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"APP_LOG_FORMAT" default:"text"`

	// --- Balances ---
	MinWithdrawal         decimal.Decimal `envconfig:"MIN_WITHDRAWAL" default:"10.00"`
	CommissionMaturity    time.Duration   `envconfig:"COMMISSION_MATURITY" default:"168h"`
	DefaultCommissionRate decimal.Decimal `envconfig:"DEFAULT_COMMISSION_RATE" default:"10"`
	DefaultRevenueShare   decimal.Decimal `envconfig:"DEFAULT_REVENUE_SHARE" default:"25"`
	DashboardWindowDays   int             `envconfig:"DASHBOARD_WINDOW_DAYS" default:"7"`
	MaturityCron          string          `envconfig:"MATURITY_CRON" default:"@every 10m"`

	// --- Auth ---
	AdminAPIKey       string `envconfig:"ADMIN_API_KEY" required:"true"`
	MasterAgentCode   string `envconfig:"MASTER_AGENT_CODE" required:"true"`
	MasterAgentSecret string `envconfig:"MASTER_AGENT_SECRET" required:"true"`
}

// DatabaseDSN returns the postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "memory" {
		return fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.DBDriver)
	}
	if !c.MinWithdrawal.IsPositive() {
		return fmt.Errorf("MIN_WITHDRAWAL must be > 0")
	}
	if c.CommissionMaturity < 0 {
		return fmt.Errorf("COMMISSION_MATURITY must be >= 0")
	}
	// A zero default would onboard partners that never accrue; set a zero
	// rate per partner instead.
	if !validDefaultPercent(c.DefaultCommissionRate) || !validDefaultPercent(c.DefaultRevenueShare) {
		return fmt.Errorf("DEFAULT_COMMISSION_RATE and DEFAULT_REVENUE_SHARE must be within (0,100]")
	}
	if c.DashboardWindowDays <= 0 {
		return fmt.Errorf("DASHBOARD_WINDOW_DAYS must be > 0")
	}
	return nil
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validDefaultPercent(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(100))
}
