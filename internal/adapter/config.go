package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "IMPORTWATCH"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Project ProjectConfig `mapstructure:"project"`
	Console ConsoleConfig `mapstructure:"console"`
	Watch   WatchConfig   `mapstructure:"watch"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// ServerConfig holds backend connection settings
type ServerConfig struct {
	Endpoint          string        `mapstructure:"endpoint"` // e.g. https://backend.example.com
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables pacing
	MaxRetries        int           `mapstructure:"max_retries"`
}

// ProjectConfig identifies the watched project
type ProjectConfig struct {
	ID string `mapstructure:"id"`
}

// ConsoleConfig locates the web console and the collection being viewed
type ConsoleConfig struct {
	URL        string `mapstructure:"url"` // defaults to {endpoint}/console
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`

	Browser     string   `mapstructure:"browser"` // empty uses the system default
	BrowserArgs []string `mapstructure:"browser_args"`
}

// WatchConfig tunes how import progress is followed
type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"` // 0 disables polling
	PingInterval time.Duration `mapstructure:"ping_interval"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	ToastLifetime time.Duration `mapstructure:"toast_lifetime"`
	Collapsed     bool          `mapstructure:"collapsed"` // start with the panel collapsed
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir    string        `mapstructure:"dir"` // empty keeps the cache in memory
	MaxAge time.Duration `mapstructure:"max_age"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			MaxRetries:        2,
		},
		Watch: WatchConfig{
			PollInterval: 30 * time.Second,
			PingInterval: 20 * time.Second,
			MaxBackoff:   30 * time.Second,
		},
		UI: UIConfig{
			ToastLifetime: 8 * time.Second,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Cache: CacheConfig{
			Dir:    defaultCachePath(),
			MaxAge: 24 * time.Hour,
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "importwatch", "importwatch.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "importwatch", "importwatch.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "importwatch")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "importwatch")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "importwatch", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "importwatch", "cache")
	}
}

// newViper creates a viper instance with defaults and environment overrides.
// Every key gets a default so IMPORTWATCH_* variables are seen by Unmarshal.
func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range configValues(defaults) {
		v.SetDefault(key, value)
	}
	return v
}

// configValues flattens a config into viper keys (snake_case)
func configValues(cfg *Config) map[string]any {
	return map[string]any{
		"server.endpoint":            cfg.Server.Endpoint,
		"server.api_key":             cfg.Server.APIKey,
		"server.timeout":             cfg.Server.Timeout,
		"server.requests_per_second": cfg.Server.RequestsPerSecond,
		"server.max_retries":         cfg.Server.MaxRetries,
		"project.id":                 cfg.Project.ID,
		"console.url":                cfg.Console.URL,
		"console.database":           cfg.Console.Database,
		"console.collection":         cfg.Console.Collection,
		"console.browser":            cfg.Console.Browser,
		"console.browser_args":       cfg.Console.BrowserArgs,
		"watch.poll_interval":        cfg.Watch.PollInterval,
		"watch.ping_interval":        cfg.Watch.PingInterval,
		"watch.max_backoff":          cfg.Watch.MaxBackoff,
		"ui.toast_lifetime":          cfg.UI.ToastLifetime,
		"ui.collapsed":               cfg.UI.Collapsed,
		"logging.file":               cfg.Logging.File,
		"logging.level":              cfg.Logging.Level,
		"cache.dir":                  cfg.Cache.Dir,
		"cache.max_age":              cfg.Cache.MaxAge,
	}
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the user config directory and the working directory;
// a missing file there is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Server.Endpoint = strings.TrimRight(cfg.Server.Endpoint, "/")
	if len(cfg.Console.BrowserArgs) == 0 {
		cfg.Console.BrowserArgs = nil
	}
	cfg.Logging.File = expandHome(cfg.Logging.File)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	return cfg, nil
}

// SaveConfig writes the configuration to path, or to the default location
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(defaultConfigPath(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for key, value := range configValues(cfg) {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if the endpoint and project are set
func (c *Config) IsConfigured() bool {
	return c.Server.Endpoint != "" && c.Project.ID != ""
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	switch {
	case c.Server.Endpoint == "":
		return errors.New("server.endpoint is required")
	case !strings.HasPrefix(c.Server.Endpoint, "http://") && !strings.HasPrefix(c.Server.Endpoint, "https://"):
		return fmt.Errorf("server.endpoint must be an http(s) URL, got %q", c.Server.Endpoint)
	case c.Project.ID == "":
		return errors.New("project.id is required")
	case c.Watch.PollInterval < 0:
		return errors.New("watch.poll_interval must not be negative")
	}
	return nil
}

// ConsoleURL returns the web console base URL
func (c *Config) ConsoleURL() string {
	if c.Console.URL != "" {
		return strings.TrimRight(c.Console.URL, "/")
	}
	return c.Server.Endpoint + "/console"
}

// GetCachePath returns the default cache directory path
func GetCachePath() string {
	return defaultCachePath()
}

// expandHome expands a leading ~ in path
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
