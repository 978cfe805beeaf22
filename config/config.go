package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML config file.
const FileEnv = "CALIBRE_EXPORT_CONFIG"

type Config struct {
	Library   LibraryConfig  `yaml:"library"`
	Database  DatabaseConfig `yaml:"database"`
	Runtime   RuntimeConfig  `yaml:"runtime"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
}

type LibraryConfig struct {
	Path string `yaml:"path"`
	// CalibreConfigDir holds global.py.json. Empty means calibre's default location.
	CalibreConfigDir string `yaml:"calibre_config_dir"`
}

type DatabaseConfig struct {
	FileName    string `yaml:"file_name"`
	BusyTimeout int    `yaml:"busy_timeout"` // milliseconds, 0 keeps the driver default
}

// RuntimeConfig carries the calibre installation locations.
type RuntimeConfig struct {
	PythonPath      string `yaml:"python_path"`
	ResourcesPath   string `yaml:"resources_path"`
	ExtensionsPath  string `yaml:"extensions_path"`
	ExecutablesPath string `yaml:"executables_path"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			FileName: "metadata.db",
		},
		Runtime: RuntimeConfig{
			PythonPath:      "/usr/lib/calibre",
			ResourcesPath:   "/usr/share/calibre",
			ExtensionsPath:  "/usr/lib/calibre/calibre/plugins",
			ExecutablesPath: "/usr/bin",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// CALIBRE_EXPORT_CONFIG and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Library.Path = getEnv("CALIBRE_LIBRARY_PATH", cfg.Library.Path)
	cfg.Library.CalibreConfigDir = getEnv("CALIBRE_CONFIG_DIRECTORY", cfg.Library.CalibreConfigDir)
	cfg.Database.BusyTimeout = getEnvInt("DB_BUSY_TIMEOUT", cfg.Database.BusyTimeout)
	cfg.Runtime.PythonPath = getEnv("CALIBRE_PYTHON_PATH", cfg.Runtime.PythonPath)
	cfg.Runtime.ResourcesPath = getEnv("CALIBRE_RESOURCES_PATH", cfg.Runtime.ResourcesPath)
	cfg.Runtime.ExtensionsPath = getEnv("CALIBRE_EXTENSIONS_PATH", cfg.Runtime.ExtensionsPath)
	cfg.Runtime.ExecutablesPath = getEnv("CALIBRE_EXECUTABLES_PATH", cfg.Runtime.ExecutablesPath)
	cfg.Metrics.Textfile = getEnv("METRICS_TEXTFILE", cfg.Metrics.Textfile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that have a fixed set of options.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.Database.FileName == "" {
		return errors.New("database file name is required")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("invalid busy timeout %d", c.Database.BusyTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
