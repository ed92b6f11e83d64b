package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".reportconv.yaml"

// configNames are searched in each directory, in order.
var configNames = []string{DefaultConfigFile, ".reportconv.yml", ".reportconv.toml"}

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is wrapped by every validation failure of a
	// configuration file.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// LoadConfigFile loads a configuration file. Files ending in .toml are
// decoded as TOML, everything else as YAML. A relative source_root is
// interpreted relative to the file's directory.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cf); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
		}
	} else if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	if err := validate.Struct(&cf); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfigFile, describe(err))
	}

	if cf.SourceRoot != "" && !filepath.IsAbs(cf.SourceRoot) {
		cf.SourceRoot = filepath.Join(filepath.Dir(path), cf.SourceRoot)
	}
	return &cf, nil
}

// describe turns validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), rule)
	}
	return strings.Join(parts, "; ")
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. the current directory
//  3. the user's home directory
//  4. the XDG config directory (config.yaml or config.toml)
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		if p := findIn(dir, configNames); p != "" {
			return p
		}
	}
	return findIn(XDGConfigDir(), []string{"config.yaml", "config.toml"})
}

func findIn(dir string, names []string) string {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
