// Package report writes conversion results.
//
//   - JSONWriter: the unified report document for tool integration
//   - MarkdownWriter: summary tables and a severity pie chart
//   - TextWriter: compiler-style lines for terminals, optionally colored
package report
