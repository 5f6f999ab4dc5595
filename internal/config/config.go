package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Sync      SyncConfig      `yaml:"sync"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Paths     PathsConfig     `yaml:"paths"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Token, when set, is required as a bearer token on the HTTP surface.
	Token string `yaml:"token"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type SyncConfig struct {
	DaysBack       int `yaml:"days_back"`
	DiscoveryDepth int `yaml:"discovery_depth"`
	// Schedule is a cron spec for background syncs in serve mode. Empty disables it.
	Schedule       string `yaml:"schedule"`
	ProgressBuffer int    `yaml:"progress_buffer"`
}

type CalendarConfig struct {
	Provider          string   `yaml:"provider"`
	ICSSources        []string `yaml:"ics_sources"`
	GoogleCredentials string   `yaml:"google_credentials"`
	GoogleToken       string   `yaml:"google_token"`
}

// PathsConfig seeds the matching settings on first run.
type PathsConfig struct {
	RepositoryRoot string `yaml:"repository_root"`
	BrowserProfile string `yaml:"browser_profile"`
}

// Calendar providers.
const (
	CalendarICS    = "ics"
	CalendarGoogle = "google"
	CalendarNone   = "none"
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			Path: "traceback.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Sync: SyncConfig{
			DaysBack:       90,
			DiscoveryDepth: 2,
			ProgressBuffer: 64,
		},
		Calendar: CalendarConfig{
			Provider: CalendarICS,
		},
		Paths: PathsConfig{
			RepositoryRoot: "~/Development",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML
// file and TRACEBACK_* environment variables, in that order.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path := os.Getenv("TRACEBACK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Calendar.Provider {
	case CalendarICS, CalendarGoogle, CalendarNone:
	default:
		return fmt.Errorf("invalid calendar provider %q", c.Calendar.Provider)
	}
	if c.Sync.DaysBack <= 0 {
		return fmt.Errorf("sync.days_back must be positive")
	}
	return nil
}

func loadEnvFile() error {
	path := os.Getenv("TRACEBACK_ENV_FILE")
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"TRACEBACK_SERVER_HOST":        &cfg.Server.Host,
		"TRACEBACK_SERVER_TOKEN":       &cfg.Server.Token,
		"TRACEBACK_TRANSPORT_MODE":     &cfg.Transport.Mode,
		"TRACEBACK_DB_PATH":            &cfg.DB.Path,
		"TRACEBACK_LOG_LEVEL":          &cfg.Log.Level,
		"TRACEBACK_LOG_PATH":           &cfg.Log.Path,
		"TRACEBACK_SYNC_SCHEDULE":      &cfg.Sync.Schedule,
		"TRACEBACK_CALENDAR_PROVIDER":  &cfg.Calendar.Provider,
		"TRACEBACK_GOOGLE_CREDENTIALS": &cfg.Calendar.GoogleCredentials,
		"TRACEBACK_GOOGLE_TOKEN":       &cfg.Calendar.GoogleToken,
		"TRACEBACK_REPOSITORY_ROOT":    &cfg.Paths.RepositoryRoot,
		"TRACEBACK_BROWSER_PROFILE":    &cfg.Paths.BrowserProfile,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TRACEBACK_SERVER_PORT":          &cfg.Server.Port,
		"TRACEBACK_SYNC_DAYS_BACK":       &cfg.Sync.DaysBack,
		"TRACEBACK_SYNC_DISCOVERY_DEPTH": &cfg.Sync.DiscoveryDepth,
		"TRACEBACK_SYNC_PROGRESS_BUFFER": &cfg.Sync.ProgressBuffer,
	}
	var errs []error
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
			continue
		}
		*dst = n
	}

	if v := os.Getenv("TRACEBACK_ICS_SOURCES"); v != "" {
		cfg.Calendar.ICSSources = nil
		for _, src := range strings.Split(v, ",") {
			if src = strings.TrimSpace(src); src != "" {
				cfg.Calendar.ICSSources = append(cfg.Calendar.ICSSources, src)
			}
		}
	}
	return errors.Join(errs...)
}
