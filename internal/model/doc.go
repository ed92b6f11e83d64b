// Package model defines the unified report model shared by every format
// parser, the path resolver, the merger and the report writers.
//
// This package contains the following main types:
//   - Report: one finding, with its primary Location and optional BugPath
//   - BugPathEvent: one step of a multi-point trace (event, note or macro expansion)
//   - Severity: the ordered unified severity scale
//   - Diagnostic: a human-readable explanation of a skipped file or record
//   - ConversionResult: the output of one conversion run
//
// Reports are created by a format parser, copied and rewritten by the path
// resolver, then filtered by the merger. Nothing in this package keeps
// state between conversion runs.
package model
