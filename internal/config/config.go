// Package config loads chorewheel settings from defaults, an optional YAML
// file and CHOREWHEEL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CHOREWHEEL_"

// Config holds settings for both the service and the client commands.
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTIssuer string        `yaml:"jwt_issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	VAPIDPublicKey   string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey  string        `yaml:"vapid_private_key"`
	VAPIDSubscriber  string        `yaml:"vapid_subscriber"`
	ReminderInterval time.Duration `yaml:"reminder_interval"`

	// Client side.
	APIURL     string        `yaml:"api_url"`
	CacheDir   string        `yaml:"cache_dir"`
	APITimeout time.Duration `yaml:"api_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	cacheDir := ".chorewheel"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".chorewheel")
	}
	return &Config{
		Port:             "8080",
		DBPath:           "chorewheel.db",
		LogLevel:         "info",
		LogFormat:        "text",
		JWTIssuer:        "chorewheel",
		TokenTTL:         30 * 24 * time.Hour,
		VAPIDSubscriber:  "mailto:admin@chorewheel.local",
		ReminderInterval: time.Hour,
		APIURL:           "http://localhost:8080",
		CacheDir:         cacheDir,
		APITimeout:       15 * time.Second,
	}
}

// Load reads path on top of the defaults. An empty path or a missing file
// leaves the defaults in place. Environment variables win over both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":              &c.Port,
		"DB_PATH":           &c.DBPath,
		"LOG_LEVEL":         &c.LogLevel,
		"LOG_FORMAT":        &c.LogFormat,
		"JWT_SECRET":        &c.JWTSecret,
		"JWT_ISSUER":        &c.JWTIssuer,
		"VAPID_PUBLIC_KEY":  &c.VAPIDPublicKey,
		"VAPID_PRIVATE_KEY": &c.VAPIDPrivateKey,
		"VAPID_SUBSCRIBER":  &c.VAPIDSubscriber,
		"API_URL":           &c.APIURL,
		"CACHE_DIR":         &c.CacheDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":         &c.TokenTTL,
		"REMINDER_INTERVAL": &c.ReminderInterval,
		"API_TIMEOUT":       &c.APITimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}
	return nil
}

// ValidateServer checks the settings the service cannot start without.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return errors.New("vapid_public_key and vapid_private_key must be set together")
	}
	return nil
}

// PushEnabled reports whether VAPID keys are configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
