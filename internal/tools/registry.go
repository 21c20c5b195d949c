package tools

import (
	"fmt"
	"sort"
)

// Registry is the static catalog of gateway tools. It is built once at startup
// and never mutated afterwards, so reads need no locking.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds the registry from the declarative catalog.
func NewRegistry() *Registry {
	entries := catalog()
	r := &Registry{tools: make(map[string]Tool, len(entries))}
	for _, tool := range entries {
		name := tool.Definition.Name
		if _, exists := r.tools[name]; exists {
			panic(fmt.Sprintf("duplicate tool in catalog: %s", name))
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	sort.Strings(r.order)
	return r
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all tool definitions in stable name order.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Len reports the catalog size.
func (r *Registry) Len() int {
	return len(r.tools)
}
