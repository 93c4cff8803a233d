// Package output provides formatters for displaying strand run results.
//
// The package supports multiple output formats (table, JSON, YAML) and
// provides a unified interface for formatting both single data items and the
// per-job results of a run.
//
// # Features
//
//   - Multiple output formats: table (kubectl-style), JSON, and YAML
//   - Color support with automatic TTY detection
//   - Configurable options (no-color, no-headers, wide mode)
//   - Run summary aggregation
//
// # Basic Usage
//
//	formatter := output.NewFormatter(output.FormatTable)
//
//	// Format a single data item
//	formatter.Format(os.Stdout, map[string]interface{}{"key": "value"})
//
//	// Format run results
//	results := []harness.Result{...}
//	formatter.FormatResults(os.Stdout, results)
package output
