// Package config loads worldhub settings: built-in defaults, then an optional
// yaml file, then WORLDAPI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/world-api/internal/environment"
)

// Config is the daemon configuration.
type Config struct {
	Port     int    `yaml:"port" env:"WORLDAPI_PORT"`
	AdminKey string `yaml:"admin_key" env:"WORLDAPI_ADMIN_KEY"`
	DataDir  string `yaml:"data_dir" env:"WORLDAPI_DATA_DIR"`
	DBPath   string `yaml:"db_path" env:"WORLDAPI_DB_PATH"`

	NotifyMode    string        `yaml:"notify_mode" env:"WORLDAPI_NOTIFY_MODE"`
	FrameInterval time.Duration `yaml:"frame_interval" env:"WORLDAPI_FRAME_INTERVAL"`
	TimeScale     float64       `yaml:"time_scale" env:"WORLDAPI_TIME_SCALE"`
	Latitude      float64       `yaml:"latitude" env:"WORLDAPI_LATITUDE"`
	Longitude     float64       `yaml:"longitude" env:"WORLDAPI_LONGITUDE"`

	AutosaveFrames uint64 `yaml:"autosave_frames" env:"WORLDAPI_AUTOSAVE_FRAMES"`
	SnapshotKeep   int    `yaml:"snapshot_keep" env:"WORLDAPI_SNAPSHOT_KEEP"`
	SnapshotFile   string `yaml:"snapshot_file" env:"WORLDAPI_SNAPSHOT_FILE"`

	WeatherKey      string        `yaml:"weather_key" env:"WORLDAPI_WEATHER_KEY"`
	WeatherLocation string        `yaml:"weather_location" env:"WORLDAPI_WEATHER_LOCATION"`
	WeatherPoll     time.Duration `yaml:"weather_poll" env:"WORLDAPI_WEATHER_POLL"`

	GustSeed int64 `yaml:"gust_seed" env:"WORLDAPI_GUST_SEED"`

	OTelEndpoint  string `yaml:"otel_endpoint" env:"WORLDAPI_OTEL_ENDPOINT"`
	PresetAppName string `yaml:"preset_app_name" env:"WORLDAPI_PRESET_APP"`
	RateLimit     int    `yaml:"rate_limit" env:"WORLDAPI_RATE_LIMIT"`

	CORSOrigins []string `yaml:"cors_origins" env:"WORLDAPI_CORS_ORIGINS" envSeparator:","`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:            8080,
		DataDir:         "data",
		NotifyMode:      "deferred",
		FrameInterval:   100 * time.Millisecond,
		TimeScale:       60,
		AutosaveFrames:  6000,
		SnapshotKeep:    20,
		WeatherLocation: "London,GB",
		WeatherPoll:     15 * time.Minute,
		GustSeed:        42,
		PresetAppName:   "worldhub",
		RateLimit:       5,
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and normalizes the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Normalize fills derived and out-of-range values.
func (c *Config) Normalize() {
	d := Default()
	c.NotifyMode = strings.ToLower(strings.TrimSpace(c.NotifyMode))
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.DBPath == "" {
		c.DBPath = c.DataDir + "/world.db"
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.TimeScale < 0 {
		c.TimeScale = 0
	}
	if c.SnapshotKeep < 1 {
		c.SnapshotKeep = 1
	}
	if c.WeatherPoll < time.Minute {
		c.WeatherPoll = time.Minute
	}
	if c.PresetAppName == "" {
		c.PresetAppName = d.PresetAppName
	}
	if c.RateLimit < 1 {
		c.RateLimit = d.RateLimit
	}
}

// Validate reports values Normalize cannot repair.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := environment.ParseNotifyMode(c.NotifyMode); err != nil {
		errs = append(errs, err)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		errs = append(errs, fmt.Errorf("latitude %g out of range", c.Latitude))
	}
	return errors.Join(errs...)
}

// Mode returns the parsed notification mode. Call after Validate.
func (c Config) Mode() environment.NotifyMode {
	m, _ := environment.ParseNotifyMode(c.NotifyMode)
	return m
}
