package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/strand-cli/strand/internal/harness"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as YAML
func (f *YAMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}

// FormatResults outputs run results as YAML
func (f *YAMLFormatter) FormatResults(w io.Writer, results []harness.Result) error {
	output := make([]map[string]interface{}, len(results))
	for i, result := range results {
		output[i] = resultToMap(result)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(output)
}
