package config

import (
	"fmt"
	"time"

	"github.com/nao1215/reportconv/internal/resolve"
)

// File represents the structure of the .reportconv configuration file.
// Zero values mean "not set" and leave the defaults alone.
type File struct {
	// SourceRoot is relative to the directory of the config file when
	// not absolute.
	SourceRoot string `yaml:"source_root,omitempty" toml:"source_root"`

	// Format forces a parser for every input.
	Format string `yaml:"format,omitempty" toml:"format"`

	// Output is the report format: json, markdown or text.
	Output string `yaml:"output,omitempty" toml:"output" validate:"omitempty,oneof=json markdown text"`

	Concurrency int `yaml:"concurrency,omitempty" toml:"concurrency" validate:"gte=0,lte=1024"`

	// FileTimeout is a Go duration string such as "90s".
	FileTimeout string `yaml:"file_timeout,omitempty" toml:"file_timeout" validate:"omitempty,duration"`

	MaxFileSize int64 `yaml:"max_file_size,omitempty" toml:"max_file_size" validate:"gte=0"`

	CheckExists bool `yaml:"check_exists,omitempty" toml:"check_exists"`

	// Mappings rewrite build-machine path prefixes to local ones.
	Mappings []resolve.Mapping `yaml:"mappings,omitempty" toml:"mappings" validate:"dive"`

	// Authorities pick the representative of merged duplicates.
	Authorities []Authority `yaml:"authorities,omitempty" toml:"authorities" validate:"dive"`

	// DBDir enables the report store in the given directory.
	DBDir string `yaml:"db_dir,omitempty" toml:"db_dir"`
}

// Apply copies every value set in the file onto cfg.
func (f *File) Apply(cfg *Config) error {
	if f.SourceRoot != "" {
		cfg.SourceRoot = f.SourceRoot
	}
	if f.Format != "" {
		cfg.Format = f.Format
	}
	if f.Output != "" {
		cfg.OutputFormat = f.Output
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.FileTimeout != "" {
		d, err := time.ParseDuration(f.FileTimeout)
		if err != nil {
			return fmt.Errorf("file_timeout: %w", err)
		}
		cfg.FileTimeout = d
	}
	if f.MaxFileSize > 0 {
		cfg.MaxFileSize = f.MaxFileSize
	}
	if f.CheckExists {
		cfg.CheckExists = true
	}
	cfg.Mappings = append(cfg.Mappings, f.Mappings...)
	cfg.Authorities = append(cfg.Authorities, f.Authorities...)
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
		cfg.SaveToDB = true
	}
	return nil
}
