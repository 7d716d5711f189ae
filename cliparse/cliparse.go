package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store types accepted by -store / STORE_TYPE
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	CoreAPIURL     string `env:"CORE_API_URL" envDefault:"http://localhost:5001"`
	IdentityAPIURL string `env:"IDENTITY_API_URL" envDefault:"http://localhost:5002"`
	StoreType      string `env:"STORE_TYPE" envDefault:"sqlite"`
	StoreURL       string `env:"STORE_URL"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"warn"`

	// Args holds the command and its arguments after the global flags
	Args []string `env:"-"`
}

// LoadDotEnv reads a .env file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags reads the environment, then lets global flags override it.
// Parsing stops at the first non-flag argument, the command name.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}

	fs := flag.NewFlagSet("voxpop", flag.ContinueOnError)

	// defaults come from the environment so flags win over env
	fs.StringVar(&cfg.CoreAPIURL, "core-url", cfg.CoreAPIURL, "Core API base URL")
	fs.StringVar(&cfg.IdentityAPIURL, "identity-url", cfg.IdentityAPIURL, "Identity API base URL")
	fs.StringVar(&cfg.StoreType, "store", cfg.StoreType, "Credential store (sqlite, postgres or memory)")
	fs.StringVar(&cfg.StoreURL, "store-url", cfg.StoreURL, "Credential store path or connection URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()

	cfg.CoreAPIURL = strings.TrimRight(cfg.CoreAPIURL, "/")
	cfg.IdentityAPIURL = strings.TrimRight(cfg.IdentityAPIURL, "/")
	if cfg.CoreAPIURL == "" || cfg.IdentityAPIURL == "" {
		return Config{}, errors.New("core and identity API URLs are required")
	}

	switch cfg.StoreType {
	case StoreSQLite:
		if cfg.StoreURL == "" {
			path, err := DefaultStorePath()
			if err != nil {
				return Config{}, err
			}
			cfg.StoreURL = path
		}
	case StorePostgres:
		if cfg.StoreURL == "" {
			return Config{}, errors.New("postgres store requires a URL (use -store-url or STORE_URL env)")
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unsupported store type %q", cfg.StoreType)
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultStorePath is the sqlite file under the user's config directory
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "voxpop", "credentials.db"), nil
}

// ParseLogLevel maps a level name to slog.Level
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
