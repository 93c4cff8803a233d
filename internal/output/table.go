package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/strand-cli/strand/internal/harness"
)

// TableFormatter formats output as a table (kubectl-style)
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		// Fallback to simple string representation
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatResults outputs run results as a table
func (f *TableFormatter) FormatResults(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"JOB", "STATUS", "STEPS", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "WORKER", "ID")
	}

	if !f.options.NoHeaders {
		if colors.Disabled {
			table.SetHeader(headers)
		} else {
			coloredHeaders := make([]string, len(headers))
			for i, h := range headers {
				coloredHeaders[i] = colors.Header(h)
			}
			table.SetHeader(coloredHeaders)
		}
	}

	for _, result := range results {
		table.Append(f.formatResultRow(result, colors))
	}

	table.Render()

	f.printSummary(w, results, colors)

	return nil
}

// formatResultRow formats a single result as a table row
func (f *TableFormatter) formatResultRow(result harness.Result, colors *ColorScheme) []string {
	jobName := result.Job
	if !colors.Disabled {
		jobName = colors.JobName(jobName)
	}

	status := "Success"
	if result.Err != nil {
		status = "Failed"
	}
	if !colors.Disabled {
		status = colors.StatusColor(result.Err != nil)(status)
	}

	duration := result.Duration.String()
	if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{jobName, status, fmt.Sprintf("%d", result.Steps), duration}

	if f.options.Wide {
		row = append(row, result.Worker, result.ID)
	}

	return row
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t") // Tab-separated like kubectl
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints a summary line under the table
func (f *TableFormatter) printSummary(w io.Writer, results []harness.Result, colors *ColorScheme) {
	summary := harness.Summarize(results)

	line := summary.String()
	if !colors.Disabled && summary.Failed > 0 {
		line = colors.Warning(line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)

	if summary.Failed > 0 {
		for _, res := range harness.FilterFailed(results) {
			msg := fmt.Sprintf("  %s: %v", res.Job, res.Err)
			if !colors.Disabled {
				msg = colors.Error("%s", msg)
			}
			fmt.Fprintln(w, msg)
		}
	}
}
