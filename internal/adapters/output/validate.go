package output

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed graph.schema.json
var graphSchema []byte

// ValidationResult lists the schema violations of one document.
type ValidationResult struct {
	Errors []string
}

// Valid reports whether the document matched the schema.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateDocument checks a decoded JSON document against the graph schema.
// The document may be a single graph or an array of graphs.
func ValidateDocument(doc any) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(graphSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	res := &ValidationResult{}
	for _, verr := range result.Errors() {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}
	return res, nil
}

// ValidateFile reads the document at path and validates it against the graph schema.
func ValidateFile(path string) (*ValidationResult, error) {
	var doc any
	if err := ReadJSON(path, &doc); err != nil {
		return nil, err
	}
	return ValidateDocument(doc)
}
