package jarir

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted in StoreConfig.Driver.
const (
	StoreDriverJSON   = "json"
	StoreDriverSQLite = "sqlite"
)

// Environment variables that override the configured directories.
const (
	EnvBooksDir  = "JARIR_BOOKS_DIR"
	EnvOutputDir = "JARIR_OUTPUT_DIR"
)

// Config holds the engine configuration.
type Config struct {
	// BooksDir holds downloaded archives (<id>.zip, <id>.zip.body) and the
	// per-book working directories.
	BooksDir string `yaml:"books_dir"`

	// OutputDir receives reconstructed books.
	OutputDir string `yaml:"output_dir"`

	Store StoreConfig `yaml:"store"`

	// EPUB enables packaging reconstructed chapters as <title>.epub.
	EPUB bool `yaml:"epub"`

	// Markdown enables writing one .md file per chapter.
	Markdown bool `yaml:"markdown"`

	// ValidatePDF parses decrypted PDFs before moving them into place.
	ValidatePDF bool `yaml:"validate_pdf"`

	MaxEntryMB int    `yaml:"max_entry_mb"`
	LogLevel   string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat  string `yaml:"log_format"` // text | json

	// Logger overrides the logger built from LogLevel and LogFormat.
	Logger *slog.Logger `yaml:"-"`
}

// StoreConfig selects the settings store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // json | sqlite
	Path   string `yaml:"path"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		BooksDir:  "books",
		OutputDir: "output",
		Store: StoreConfig{
			Driver: StoreDriverJSON,
			Path:   "settings.json",
		},
		EPUB:        true,
		ValidatePDF: true,
		MaxEntryMB:  512,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadConfig reads a YAML config file over DefaultConfig, applies the
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jarir: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("jarir: parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides the directories from JARIR_BOOKS_DIR and
// JARIR_OUTPUT_DIR when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBooksDir); v != "" {
		c.BooksDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.BooksDir == "" {
		return fmt.Errorf("jarir: books_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("jarir: output_dir is required")
	}
	if c.MaxEntryMB <= 0 {
		return fmt.Errorf("jarir: max_entry_mb must be > 0")
	}
	switch c.Store.Driver {
	case StoreDriverJSON, StoreDriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("jarir: store.path is required")
		}
	case "":
	default:
		return fmt.Errorf("jarir: unsupported store.driver %q (use json or sqlite)", c.Store.Driver)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("jarir: unsupported log_format %q (use text or json)", c.LogFormat)
	}
	return nil
}

// MaxEntryBytes returns the per-entry extraction limit in bytes.
func (c *Config) MaxEntryBytes() int64 { return int64(c.MaxEntryMB) * 1024 * 1024 }

// NewLogger builds a slog logger from LogLevel and LogFormat, or returns
// Logger when it is set.
func (c *Config) NewLogger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("jarir: unsupported log_level %q: %w", s, err)
	}
	return level, nil
}
