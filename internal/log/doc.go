// Package log provides slog loggers that mask secrets before they reach
// the output.
//
// Analyzer outputs routinely quote compile commands, so diagnostics and
// parse errors can carry values such as -DAPI_KEY=... or credentials in
// artifact URLs. SecureHandler masks:
//   - attributes whose key names a secret (token, password, authorization)
//   - values that look like credentials (JWTs, bearer tokens, AWS keys)
//   - secret macro definitions and URL passwords inside longer strings
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
