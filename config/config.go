package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL = "http://localhost:8000/api/v1"
	DefaultAdminEmail = "admin@stockadvisor.local"
)

// Config holds all application configuration
type Config struct {
	APIBaseURL      string        `yaml:"api_base_url"`
	AdminEmail      string        `yaml:"admin_email"`
	DefaultExchange Exchange      `yaml:"default_exchange"`
	StateDir        string        `yaml:"state_dir"`
	RequestsPerSec  int           `yaml:"requests_per_sec"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MaxRefresh      time.Duration `yaml:"max_refresh_interval"`
	SearchDebounce  time.Duration `yaml:"search_debounce"`
	GeoTimeout      time.Duration `yaml:"geo_timeout"`
	SSOCallbackAddr string        `yaml:"sso_callback_addr"`
	SSOTimeout      time.Duration `yaml:"sso_timeout"`
	Logging         struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{
		APIBaseURL:      DefaultAPIBaseURL,
		AdminEmail:      DefaultAdminEmail,
		DefaultExchange: ExchangeUS,
		StateDir:        defaultStateDir(),
		RequestsPerSec:  10,
		RefreshInterval: 60 * time.Second,
		MaxRefresh:      10 * time.Minute,
		SearchDebounce:  300 * time.Millisecond,
		GeoTimeout:      3 * time.Second,
		SSOCallbackAddr: "127.0.0.1:0",
		SSOTimeout:      2 * time.Minute,
	}
	cfg.Logging.Level = "info"
	return cfg
}

// Load builds the configuration from an optional YAML file, then .env, then the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg.APIBaseURL = getEnvWithDefault("STOCKADVISOR_API", cfg.APIBaseURL)
	cfg.AdminEmail = getEnvWithDefault("STOCKADVISOR_ADMIN_EMAIL", cfg.AdminEmail)
	cfg.DefaultExchange = ParseExchange(getEnvWithDefault("STOCKADVISOR_EXCHANGE", string(cfg.DefaultExchange)))
	cfg.StateDir = getEnvWithDefault("STOCKADVISOR_STATE_DIR", cfg.StateDir)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", cfg.RequestsPerSec)
	cfg.RefreshInterval = getEnvDurationWithDefault("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.SSOCallbackAddr = getEnvWithDefault("SSO_CALLBACK_ADDR", cfg.SSOCallbackAddr)
	cfg.SSOTimeout = getEnvDurationWithDefault("SSO_TIMEOUT", cfg.SSOTimeout)
	cfg.Logging.Level = getEnvWithDefault("LOG_LEVEL", cfg.Logging.Level)
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.StateDir, "stockadvisor.log")
	}

	return cfg, nil
}

// AdminConfigured reports whether an admin email other than the built-in
// placeholder is set. Without one the admin tabs never appear.
func (c *Config) AdminConfigured() bool {
	return c.AdminEmail != "" && c.AdminEmail != DefaultAdminEmail
}

// EnvHelp describes the environment variables Load reads.
const EnvHelp = `Environment:
  STOCKADVISOR_API          backend base URL (default ` + DefaultAPIBaseURL + `)
  STOCKADVISOR_ADMIN_EMAIL  email that sees the Feedback, Admin and Sanity tabs.
                            The default is a placeholder, so set it to enable them.
  STOCKADVISOR_EXCHANGE     default exchange: US, NSE, LSE, TSE or HKEX
  STOCKADVISOR_STATE_DIR    where the token, exchange and log file are kept
  REFRESH_INTERVAL          auto-refresh period, 0 to disable (default 60s)
  REQUESTS_PER_SEC          client-side request rate
  SSO_CALLBACK_ADDR         loopback address for single sign-on callbacks
  SSO_TIMEOUT               how long to wait for a single sign-on callback
  LOG_LEVEL                 debug, info, warn or error
`

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

func defaultStateDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".stockadvisor"
	}
	return filepath.Join(homeDir, ".config", "stockadvisor")
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
