package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into an inline JSON Schema. Fields without
// omitempty are required; additional properties are rejected.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	// Providers reject or ignore $schema inside function parameters.
	schema.Version = ""
	return schema
}

// schemaMap renders s as a generic JSON object.
func schemaMap(s *jsonschema.Schema) map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		// Reflected schemas always marshal; keep the declaration usable regardless.
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
