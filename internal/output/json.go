package output

import (
	"encoding/json"
	"io"

	"github.com/strand-cli/strand/internal/harness"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatResults outputs run results as JSON
func (f *JSONFormatter) FormatResults(w io.Writer, results []harness.Result) error {
	output := make([]map[string]interface{}, len(results))
	for i, result := range results {
		output[i] = resultToMap(result)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
