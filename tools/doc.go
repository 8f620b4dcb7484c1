// Package tools defines the tool contracts exposed to the model.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: init-time registration, lookup by name, provider declarations.
//   - The fixed tool set: search and scrapeWebsite, backed by Searcher and Scraper.
package tools
