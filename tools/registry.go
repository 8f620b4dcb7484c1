package tools

import (
	"fmt"
	"sync"
)

// Registry maps tool names to definitions. Register is meant for startup;
// lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []Name
	entries map[Name]ToolDefinition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Name]ToolDefinition)}
}

// Default returns the registry with the fixed tool set: search and scrapeWebsite.
func Default(s Searcher, sc Scraper) *Registry {
	r := NewRegistry()
	for _, def := range []ToolDefinition{SearchDefinition(s), ScrapeWebsiteDefinition(sc)} {
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("tools: default registry: %v", err))
		}
	}
	return r
}

// Register adds def. Returns ErrEmptyName or ErrAlreadyExists.
func (r *Registry) Register(def ToolDefinition) error {
	if def.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, def.Name)
	}
	r.entries[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Resolve returns the definition registered under name, or ErrUnknownTool.
func (r *Registry) Resolve(name string) (ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.entries[Name(name)]
	if !ok {
		return ToolDefinition{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return def, nil
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDefinition, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.entries[n])
	}
	return out
}

// Declarations returns the provider-facing declarations in registration order.
func (r *Registry) Declarations() []Declaration {
	defs := r.Definitions()
	out := make([]Declaration, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Declaration())
	}
	return out
}
