// Package config provides the configuration of a conversion run: defaults,
// validation, and the optional .reportconv.yaml (or .toml) file.
package config
