package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Security struct {
		APIKey          string `yaml:"api_key"`
		TokenSigningKey string `yaml:"token_signing_key"`
	} `yaml:"security"`
	Auth struct {
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"auth"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Reconcile struct {
		Apply    bool          `yaml:"apply"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"reconcile"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.Dev.Mode = true
	cfg.Cache.TTL = time.Minute
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Reconcile.Interval = time.Hour
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	if cfg.HTTP.Addr == "" {
		return cfg, errors.New("missing http.addr (or CD_HTTP_ADDR)")
	}
	if cfg.Cache.TTL < 0 {
		return cfg, fmt.Errorf("cache.ttl must not be negative, got %s", cfg.Cache.TTL)
	}
	if !cfg.Dev.Mode && cfg.Security.APIKey == "" && cfg.Security.TokenSigningKey == "" {
		return cfg, errors.New("missing security.api_key or security.token_signing_key outside dev mode")
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return cfg, fmt.Errorf("unknown log.format %q", cfg.Log.Format)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CD_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CD_HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("CD_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("CD_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CD_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("CD_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("CD_API_KEY"); v != "" {
		cfg.Security.APIKey = v
	}
	if v := os.Getenv("CD_TOKEN_SIGNING_KEY"); v != "" {
		cfg.Security.TokenSigningKey = v
	}
	if v := os.Getenv("CD_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("CD_AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("CD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CD_RECONCILE_APPLY"); v != "" {
		cfg.Reconcile.Apply = parseBool(v, cfg.Reconcile.Apply)
	}
	if v := os.Getenv("CD_RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reconcile.Interval = d
		}
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
