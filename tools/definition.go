package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Name is the closed set of tool names the model may invoke.
type Name string

const (
	Search        Name = "search"
	ScrapeWebsite Name = "scrapeWebsite"
)

// Func is a tool handler. args holds the schema's required fields, as strings,
// in schema-declared order.
type Func func(ctx context.Context, args ...string) (string, error)

// ToolDefinition binds a tool name to its schema and handler.
type ToolDefinition struct {
	Name        Name
	Description string
	InputSchema *jsonschema.Schema
	Function    Func
}

// RequiredFields returns the required argument names in declaration order.
func (d ToolDefinition) RequiredFields() []string {
	if d.InputSchema == nil {
		return nil
	}
	return d.InputSchema.Required
}

// SchemaJSON returns the input schema encoded as JSON.
func (d ToolDefinition) SchemaJSON() ([]byte, error) {
	return json.Marshal(d.InputSchema)
}

// Declaration is the provider-facing description of a tool.
type Declaration struct {
	Name        string
	Description string
	// Parameters is the full JSON Schema object for the arguments.
	Parameters map[string]any
	Required   []string
}

// Properties returns the "properties" member of Parameters.
func (d Declaration) Properties() any {
	return d.Parameters["properties"]
}

// Declaration renders d for a completion request.
func (d ToolDefinition) Declaration() Declaration {
	return Declaration{
		Name:        string(d.Name),
		Description: d.Description,
		Parameters:  schemaMap(d.InputSchema),
		Required:    append([]string(nil), d.RequiredFields()...),
	}
}
