package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

const (
	DraftMemory   = "memory"
	DraftFile     = "file"
	DraftPostgres = "postgres"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LabAPIURL        string        `mapstructure:"LAB_API_URL"`
	LabAPIToken      string        `mapstructure:"LAB_API_TOKEN"`
	LabAPISigningKey string        `mapstructure:"LAB_API_SIGNING_KEY"`
	LabAPITimeout    time.Duration `mapstructure:"LAB_API_TIMEOUT"`
	DraftBackend     string        `mapstructure:"DRAFT_BACKEND"`
	DraftDir         string        `mapstructure:"DRAFT_DIR"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	ChromePath       string        `mapstructure:"CHROME_PATH"`
	RenderMaxWindows int           `mapstructure:"RENDER_MAX_WINDOWS"`
	SearchDebounce   time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	SuccessBanner    time.Duration `mapstructure:"SUCCESS_BANNER"`
	SessionTTL       time.Duration `mapstructure:"SESSION_TTL"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"LAB_API_URL", "LAB_API_TOKEN", "LAB_API_SIGNING_KEY", "LAB_API_TIMEOUT",
	"DRAFT_BACKEND", "DRAFT_DIR", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CHROME_PATH", "RENDER_MAX_WINDOWS",
	"SEARCH_DEBOUNCE", "SUCCESS_BANNER", "SESSION_TTL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LAB_API_TIMEOUT", "15s")
	v.SetDefault("DRAFT_BACKEND", DraftMemory)
	v.SetDefault("DRAFT_DIR", "data/drafts")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("RENDER_MAX_WINDOWS", 4)
	v.SetDefault("SEARCH_DEBOUNCE", "800ms")
	v.SetDefault("SUCCESS_BANNER", "30s")
	v.SetDefault("SESSION_TTL", "12h")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LabAPIURL == "" {
		return nil, fmt.Errorf("LAB_API_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the chosen backends have what they need.
func (c *Config) Validate() error {
	u, err := url.Parse(c.LabAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LAB_API_URL must be an absolute URL, got %q", c.LabAPIURL)
	}
	if c.LabAPIToken != "" && c.LabAPISigningKey != "" {
		return fmt.Errorf("set only one of LAB_API_TOKEN and LAB_API_SIGNING_KEY")
	}

	switch c.DraftBackend {
	case DraftMemory:
	case DraftFile:
		if c.DraftDir == "" {
			return fmt.Errorf("DRAFT_DIR is required when DRAFT_BACKEND is %q", DraftFile)
		}
	case DraftPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DRAFT_BACKEND is %q", DraftPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("DRAFT_BACKEND must be %q, %q or %q, got %q", DraftMemory, DraftFile, DraftPostgres, c.DraftBackend)
	}

	if c.RenderMaxWindows < 1 {
		return fmt.Errorf("RENDER_MAX_WINDOWS must be at least 1, got %d", c.RenderMaxWindows)
	}
	if c.SearchDebounce <= 0 || c.SuccessBanner <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE, SUCCESS_BANNER and SESSION_TTL must be positive")
	}
	return nil
}
