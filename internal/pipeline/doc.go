// Package pipeline converts a set of analyzer output files into one
// deduplicated report collection.
//
// Every file runs through the same step sequence (read, detect, parse,
// resolve) on its own worker goroutine. Workers hand their results to a
// single collector, and the merger runs once after all files are done.
// A file that fails at any step is skipped with a diagnostic; it never
// stops the other files.
package pipeline
