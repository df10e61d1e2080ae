package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
)

const (
	envPrefix       = "COMPASS_"
	configFileEnv   = "COMPASS_CONFIG_FILE"
	maxConfigFileKB = 256
)

type Config struct {
	Env            string `koanf:"env"`
	LogLevel       string `koanf:"log_level"`
	HTTPAddr       string `koanf:"http_addr"`
	StorageBackend string `koanf:"storage_backend"`
	PostgresDSN    string `koanf:"postgres_dsn"`
	DataDir        string `koanf:"data_dir"`
	AuthMode       string `koanf:"auth_mode"`
	JWTSecret      string `koanf:"jwt_secret"`
	CORSOrigins    string `koanf:"cors_origins"`

	// DevToken seeds a demo user in token mode; only honoured in development.
	DevToken string `koanf:"dev_token"`

	// Engine overrides; zero keeps the engine default.
	HalfLifeHours      float64 `koanf:"half_life_hours"`
	MinSamples         int     `koanf:"min_samples"`
	SignificanceMargin float64 `koanf:"significance_margin"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads the process configuration once. The YAML file named by
// COMPASS_CONFIG_FILE is optional; COMPASS_* variables override it.
func Load() *Config {
	once.Do(func() {
		c, err := LoadFrom(os.Getenv(configFileEnv))
		if err != nil {
			panic("Invalid config: " + err.Error())
		}
		cfg = c
	})
	return cfg
}

// LoadFrom builds a Config from an optional YAML file at path and the
// environment, in that order of precedence (environment wins).
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// COMPASS_STORAGE_BACKEND -> storage_backend
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileKB*1024 {
		return nil, fmt.Errorf("config file %s exceeds %dKB", path, maxConfigFileKB)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(c *Config) {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "file"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.AuthMode == "" {
		c.AuthMode = "token"
	}
	if c.DevToken == "" && c.Env == "development" {
		c.DevToken = "MOCK-TOKEN"
	}
	if c.Env != "development" {
		c.DevToken = ""
	}
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "file":
		if c.DataDir == "" {
			return errors.New("file storage requires COMPASS_DATA_DIR to be set")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("COMPASS_POSTGRES_DSN is required when COMPASS_STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("COMPASS_STORAGE_BACKEND must be file or postgres, got %q", c.StorageBackend)
	}
	switch c.AuthMode {
	case "token":
	case "jwt":
		if len(c.JWTSecret) < 32 {
			return errors.New("COMPASS_JWT_SECRET must be at least 32 bytes when COMPASS_AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("COMPASS_AUTH_MODE must be token or jwt, got %q", c.AuthMode)
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("COMPASS_ENV must be one of: development, staging, production")
	}
	if c.HalfLifeHours < 0 || c.MinSamples < 0 || c.SignificanceMargin < 0 {
		return errors.New("engine overrides must not be negative")
	}
	return nil
}

// Origins splits the comma separated CORS allow list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Engine returns the engine defaults with any configured overrides applied.
func (c *Config) Engine() analytics.Config {
	ec := analytics.DefaultConfig()
	if c.HalfLifeHours > 0 {
		ec.HalfLifeHours = c.HalfLifeHours
	}
	if c.MinSamples > 0 {
		ec.MinSamples = c.MinSamples
	}
	if c.SignificanceMargin > 0 {
		ec.SignificanceMargin = c.SignificanceMargin
		ec.AntiPatternMargin = c.SignificanceMargin
	}
	return ec
}
