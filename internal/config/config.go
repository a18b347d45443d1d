package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/treinos/internal/app"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the backend request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Upload    UploadConfig    `yaml:"upload"`
	Edit      EditConfig      `yaml:"edit"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Fixture   FixtureConfig   `yaml:"fixture"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type UploadConfig struct {
	AcceptedExtensions []string `yaml:"accepted_extensions"`
}

type EditConfig struct {
	OnPersistFailure string `yaml:"on_persist_failure"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// FixtureConfig configures the dev fixture backend.
type FixtureConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// PersistPolicy returns the configured edit failure policy.
func (e EditConfig) PersistPolicy() (app.PersistPolicy, error) {
	return app.ParsePersistPolicy(e.OnPersistFailure)
}

// Load reads config from a YAML file, fills defaults, then applies environment
// variable overrides. Env vars use the prefix TREINOS_:
//
//	TREINOS_SERVER_HOST, TREINOS_SERVER_PORT,
//	TREINOS_BACKEND_URL, TREINOS_BACKEND_TIMEOUT_SECONDS,
//	TREINOS_EDIT_ON_PERSIST_FAILURE,
//	TREINOS_TAILSCALE_ENABLED, TREINOS_TAILSCALE_HOSTNAME,
//	TREINOS_FIXTURE_PORT, TREINOS_FIXTURE_DB_PATH
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = int(DefaultTimeout / time.Second)
	}
	if len(cfg.Upload.AcceptedExtensions) == 0 {
		cfg.Upload.AcceptedExtensions = []string{".txt", ".csv"}
	}
	if cfg.Edit.OnPersistFailure == "" {
		cfg.Edit.OnPersistFailure = "keep"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "treinos"
	}
	if cfg.Fixture.Host == "" {
		cfg.Fixture.Host = "127.0.0.1"
	}
	if cfg.Fixture.Port == 0 {
		cfg.Fixture.Port = 3000
	}
	if cfg.Fixture.DBPath == "" {
		cfg.Fixture.DBPath = "treinos-fixture.db"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TREINOS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TREINOS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TREINOS_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("TREINOS_BACKEND_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("TREINOS_EDIT_ON_PERSIST_FAILURE"); v != "" {
		cfg.Edit.OnPersistFailure = v
	}
	if v := os.Getenv("TREINOS_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("TREINOS_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("TREINOS_FIXTURE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Fixture.Port = port
		}
	}
	if v := os.Getenv("TREINOS_FIXTURE_DB_PATH"); v != "" {
		cfg.Fixture.DBPath = v
	}
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must start with http:// or https://")
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must not be negative")
	}
	for _, ext := range c.Upload.AcceptedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("upload.accepted_extensions: %q must look like .ext", ext)
		}
	}
	if _, err := c.Edit.PersistPolicy(); err != nil {
		return fmt.Errorf("edit.on_persist_failure: %w", err)
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}
