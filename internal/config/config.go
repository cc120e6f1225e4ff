package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const placeholderSecret = "change-me"

type Config struct {
	Port       string `env:"PORT" env-default:"8080"`
	Env        string `env:"ENV" env-default:"development"`
	DBAdapter  string `env:"DB_ADAPTER" env-default:"postgres"`
	SQLiteFile string `env:"SQLITE_FILE" env-default:"./data/screenplay.db"`
	JwtSecret  string `env:"JWT_SECRET" env-default:"change-me"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat  string `env:"LOG_FORMAT" env-default:"json"`
	// PostgreSQL connection settings
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" env-default:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" env-default:"screenplay"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB" env-default:"screenplay"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" env-default:"./migrations"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" env-default:"120"`

	Report ReportConfig
}

// ReportConfig controls the headless browser used for PDF reports.
// ChromeURL points at a remote DevTools endpoint (ws:// or http://); when
// empty a local browser is started, optionally from ChromePath.
type ReportConfig struct {
	ChromeURL     string `env:"CHROME_URL"`
	ChromePath    string `env:"CHROME_PATH"`
	MaxConcurrent int64  `env:"REPORT_MAX_CONCURRENT" env-default:"2"`
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into a trimmed list.
// An empty result means every origin is echoed back.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// New loads .env (when present) and the process environment into a Config.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.DBAdapter {
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	case "sqlite":
		if c.SQLiteFile == "" {
			return errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	if c.IsProduction() && (c.JwtSecret == "" || c.JwtSecret == placeholderSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JwtSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %s", c.Port)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %d", c.RateLimitPerMinute)
	}
	if c.Report.MaxConcurrent <= 0 {
		c.Report.MaxConcurrent = 1
	}
	return nil
}
