package extraction

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed result_schema.json
var resultSchema string

const resultSchemaName = "invoice_result.schema.json"

// Validator checks extraction results against the embedded result schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded result schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resultSchemaName, strings.NewReader(resultSchema)); err != nil {
		return nil, fmt.Errorf("failed to load result schema: %w", err)
	}

	schema, err := compiler.Compile(resultSchemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a document-level result against the schema. A violation
// is a stage-fatal condition, not a transient one.
func (v *Validator) Validate(result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for validation: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode result for validation: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("result failed schema validation: %w", err)
	}
	return nil
}
