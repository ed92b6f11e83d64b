package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoInput is returned when no analyzer output file is given.
	ErrNoInput = errors.New("no input specified: provide at least one analyzer output file or directory")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the per-file timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid file timeout: must be positive")

	// ErrInvalidMaxFileSize is returned when the size cap is not positive.
	ErrInvalidMaxFileSize = errors.New("invalid max file size: must be positive")

	// ErrUnknownOutputFormat is returned for an output format other than
	// json, markdown or text.
	ErrUnknownOutputFormat = errors.New("unknown output format: use json, markdown or text")
)
