// Package main provides the entry point for the reportconv CLI.
//
// reportconv converts the output of C/C++ static analyzers and sanitizers
// (Clang Static Analyzer and Cppcheck plists, SARIF, Infer, clang-tidy
// YAML, GCC diagnostics, sanitizer logs, Smatch) into one deduplicated
// report collection.
//
// Usage:
//
//	reportconv convert -r ./src build/analyzer-output/
//	reportconv convert --format markdown -o report.md results.sarif
//
// See --help for all available options.
package main

// main is the entry point for reportconv.
func main() {
	Execute()
}
