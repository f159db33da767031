// Package config loads the service configuration.
//
// Sources, later ones overriding earlier ones:
//
//  1. Default values (Default)
//  2. YAML file
//  3. Environment variables prefixed with MATHCAPTCHA_
//
// An environment variable names a section and a key separated by the first
// underscore: MATHCAPTCHA_SERVER_READ_TIMEOUT -> server.read_timeout.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "MATHCAPTCHA_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Config struct {
	Server  ServerSection  `koanf:"server"`
	Captcha CaptchaSection `koanf:"captcha"`
	Store   StoreSection   `koanf:"store"`
	Redis   RedisSection   `koanf:"redis"`
	Log     LogSection     `koanf:"log"`
}

type ServerSection struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type CaptchaSection struct {
	// RootDir is the base for a relative FontPath.
	RootDir string `koanf:"root_dir"`
	// FontPath is a TTF file; empty uses the bundled font.
	FontPath    string        `koanf:"font_path"`
	JPEGQuality int           `koanf:"jpeg_quality"`
	TTL         time.Duration `koanf:"ttl"`
	CookieName  string        `koanf:"cookie_name"`
}

type StoreSection struct {
	Driver        string        `koanf:"driver"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type RedisSection struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			Addr:            ":28416",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Captcha: CaptchaSection{
			RootDir:     ".",
			JPEGQuality: 75,
			TTL:         300 * time.Second,
			CookieName:  "captcha_sid",
		},
		Store: StoreSection{
			Driver:        DriverMemory,
			SweepInterval: time.Minute,
		},
		Redis: RedisSection{
			Addr:   "localhost:6379",
			Prefix: "captcha:",
		},
		Log: LogSection{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load returns Default overlaid with the file at path (skipped when path
// is empty) and the environment, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps MATHCAPTCHA_SERVER_READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Captcha.TTL <= 0 {
		return fmt.Errorf("captcha.ttl must be positive, got %s", c.Captcha.TTL)
	}
	if c.Captcha.JPEGQuality < 1 || c.Captcha.JPEGQuality > 100 {
		return fmt.Errorf("captcha.jpeg_quality must be in 1..100, got %d", c.Captcha.JPEGQuality)
	}
	if c.Captcha.CookieName == "" {
		return fmt.Errorf("captcha.cookie_name is required")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverRedis, c.Store.Driver)
	}
	return nil
}
