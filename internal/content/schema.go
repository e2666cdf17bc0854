// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the pack manifest schema.
const SchemaID = "https://clawworld.dev/schemas/pack.schema.json"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	errSchema      error
)

// GenerateSchema generates the JSON Schema for pack.yaml from Pack.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		FieldNameTag:   "yaml",
	}
	schema := r.Reflect(&Pack{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "ClawWorld Content Pack"
	schema.Description = "Schema for pack.yaml content manifests"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateSchema validates manifest YAML against the pack schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return errors.New("manifest data is empty")
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(toJSON(doc)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			errSchema = err
			return
		}
		doc, err := jschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			errSchema = fmt.Errorf("failed to parse schema JSON: %w", err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("pack.schema.json", doc); err != nil {
			errSchema = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schemaCompiled, errSchema = c.Compile("pack.schema.json")
	})
	return schemaCompiled, errSchema
}

// toJSON converts yaml.v3 output into the value shapes the validator
// expects. Integers become float64 and nested maps are rebuilt.
func toJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSON(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

// FormatSchemaError trims the validator's prefix for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
