package config

import (
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/reportconv/internal/resolve"
)

// Default configuration values.
const (
	// DefaultFileTimeout bounds the time spent on a single input file.
	// Large SARIF or plist outputs parse in seconds; two minutes only
	// trips on pathological inputs.
	DefaultFileTimeout = 2 * time.Minute

	// DefaultMaxFileSize caps a single input, before and after
	// decompression.
	DefaultMaxFileSize int64 = 64 << 20 // 64MB

	// DefaultOutputFormat is used when no --format flag is given.
	DefaultOutputFormat = "json"

	// AppName is the application name used for XDG directory paths.
	AppName = "reportconv"
)

// OutputFormats lists the accepted report writer names.
var OutputFormats = []string{"json", "markdown", "text"}

// DefaultConcurrency returns the default number of files converted in parallel.
func DefaultConcurrency() int {
	return runtime.GOMAXPROCS(0)
}

// Authority declares the analyzer whose report wins when several analyzers
// report the same defect for checkers matching Checker.
type Authority struct {
	// Checker is a path.Match pattern over checker names.
	Checker  string `yaml:"checker" toml:"checker" validate:"required"`
	Analyzer string `yaml:"analyzer" toml:"analyzer" validate:"required"`
}

// Config holds all options of a conversion run. It is populated from the
// config file first and CLI flags second, then passed down explicitly.
type Config struct {
	// Inputs are analyzer output files or directories.
	Inputs []string

	// SourceRoot is the directory report paths are made relative to.
	// Empty means the working directory.
	SourceRoot string

	// Mappings rewrite build-machine path prefixes before resolution.
	Mappings []resolve.Mapping

	// CheckExists flags report files missing under SourceRoot as unresolved.
	CheckExists bool

	// Format forces a parser instead of content detection.
	Format string

	// Concurrency is the number of files converted in parallel.
	Concurrency int

	// FileTimeout bounds the conversion of a single file.
	FileTimeout time.Duration

	// MaxFileSize caps a single input in bytes.
	MaxFileSize int64

	// Authorities select the representative of merged duplicates.
	Authorities []Authority

	// OutputFormat is one of OutputFormats.
	OutputFormat string

	// OutputFile receives the report instead of stdout.
	OutputFile string

	// NoColor disables ANSI colors in text output.
	NoColor bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit config file. When empty the file is searched.
	ConfigFilePath string

	// DBDir is where the SQLite report store lives when SaveToDB is set.
	DBDir string

	// SaveToDB stores the run in the report store.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Concurrency:  DefaultConcurrency(),
		FileTimeout:  DefaultFileTimeout,
		MaxFileSize:  DefaultMaxFileSize,
		OutputFormat: DefaultOutputFormat,
		DBDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for reportconv.
// On Linux: ~/.local/share/reportconv
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for reportconv.
// On Linux: ~/.config/reportconv
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.FileTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxFileSize <= 0 {
		return ErrInvalidMaxFileSize
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return ErrUnknownOutputFormat
	}
	for _, m := range c.Mappings {
		if m.From == "" {
			return resolve.ErrEmptyMapping
		}
	}
	return nil
}
