package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/simaogato/payswarm-backend/internal/money"
)

// Config holds the server settings read from the environment
type Config struct {
	DBConnStr  string `env:"DB_CONN_STR"`
	DBHost     string `env:"DB_HOST,default=localhost"`
	DBPort     int    `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,default=postgres"`
	DBPassword string `env:"DB_PASSWORD,default=postgres"`
	DBName     string `env:"DB_NAME,default=payswarm"`

	GRPCAddr    string `env:"GRPC_ADDR,default=:8080"`
	MetricsAddr string `env:"METRICS_ADDR,default=:9090"`

	// RedisAddr enables the payee schedule cache when set
	RedisAddr        string        `env:"REDIS_ADDR"`
	ScheduleCacheTTL time.Duration `env:"SCHEDULE_CACHE_TTL,default=5m"`

	MoneyScale    int    `env:"MONEY_SCALE,default=7"`
	MoneyRounding string `env:"MONEY_ROUNDING,default=down"`

	DefaultCurrency      string `env:"DEFAULT_CURRENCY,default=USD"`
	AuthorityDestination string `env:"AUTHORITY_DESTINATION,default=urn:payswarm:authority"`

	LogLevel       string `env:"LOG_LEVEL,default=info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT,default=false"`
}

// Load reads the optional dotenv files (".env" when none are given) and then
// decodes the environment. Variables already set in the environment win over
// the files; missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultCurrency) == "" {
		return errors.New("DEFAULT_CURRENCY cannot be empty")
	}

	if strings.TrimSpace(c.AuthorityDestination) == "" {
		return errors.New("AUTHORITY_DESTINATION cannot be empty")
	}

	if c.ScheduleCacheTTL < 0 {
		return errors.New("SCHEDULE_CACHE_TTL cannot be negative")
	}

	if _, err := c.MoneyContext(); err != nil {
		return err
	}

	return nil
}

// DSN returns DB_CONN_STR, or builds one from the individual DB_* settings
func (c *Config) DSN() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// MoneyContext returns the scale and rounding transfers are computed with
func (c *Config) MoneyContext() (money.Context, error) {
	rounding, err := money.ParseRounding(c.MoneyRounding)
	if err != nil {
		return money.Context{}, fmt.Errorf("MONEY_ROUNDING: %w", err)
	}

	if c.MoneyScale > math.MaxInt32 {
		return money.Context{}, fmt.Errorf("MONEY_SCALE: %d is out of range", c.MoneyScale)
	}

	ctx := money.Context{Scale: int32(c.MoneyScale), Rounding: rounding}
	if err := ctx.Validate(); err != nil {
		return money.Context{}, fmt.Errorf("MONEY_SCALE: %w", err)
	}

	return ctx, nil
}
