// Package config loads and watches the calcdown configuration file.
//
// Configuration is a single TOML file. Missing files are not an error;
// every field has a default and a missing file yields the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Configuration errors.
var (
	// ErrInvalidDebounce is returned when the debounce interval is not
	// positive.
	ErrInvalidDebounce = errors.New("config: debounce_ms must be positive")

	// ErrInvalidMetrics is returned when an overlay metric is not
	// positive.
	ErrInvalidMetrics = errors.New("config: overlay metrics must be positive")

	// ErrUnknownEngine is returned for an unrecognized engine selection.
	ErrUnknownEngine = errors.New("config: unknown engine")

	// ErrUnknownLogLevel is returned for an unrecognized log level.
	ErrUnknownLogLevel = errors.New("config: unknown log level")
)

// Engine selections.
const (
	// EngineEmbedded runs the built-in Lua-backed engine in process.
	EngineEmbedded = "embedded"

	// EngineRemote talks to an external engine over the wire bridge.
	EngineRemote = "remote"
)

// Config holds all editor settings.
type Config struct {
	// DebounceMS is the delay in milliseconds before dispatching
	// evaluation after the last keystroke.
	DebounceMS int `toml:"debounce_ms"`

	// LineHeight is the overlay line box height in pixels.
	LineHeight int `toml:"line_height"`

	// TopPadding is the overlay top padding in pixels.
	TopPadding int `toml:"top_padding"`

	// GlyphHeight is the font glyph size in pixels.
	GlyphHeight int `toml:"glyph_height"`

	// CellWidth is the pixel advance of one single-width cell.
	CellWidth int `toml:"cell_width"`

	// Engine selects the evaluation engine: "embedded" or "remote".
	Engine string `toml:"engine"`

	// EngineAddr is the remote engine address, used only when Engine is
	// "remote".
	EngineAddr string `toml:"engine_addr"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// Theme is the overlay color theme name.
	Theme string `toml:"theme"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DebounceMS:  300,
		LineHeight:  21,
		TopPadding:  8,
		GlyphHeight: 16,
		CellWidth:   8,
		Engine:      EngineEmbedded,
		LogLevel:    "info",
		Theme:       "calcdown-dark",
	}
}

// Debounce returns the debounce interval as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.DebounceMS <= 0 {
		return ErrInvalidDebounce
	}
	if c.LineHeight <= 0 || c.TopPadding < 0 || c.GlyphHeight <= 0 || c.CellWidth <= 0 {
		return ErrInvalidMetrics
	}
	switch c.Engine {
	case EngineEmbedded, EngineRemote:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.LogLevel)
	}
	return nil
}

// Load reads the configuration file at path, overlaying it on the
// defaults. A missing file returns the defaults without error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "calcdown", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "calcdown", "config.toml")
}
