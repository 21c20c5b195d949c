package mcp

import "tourgate/internal/tools"

// MCPTool is a tool description in MCP tools/list shape.
type MCPTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// toMCPTool converts the shared registry definition into the MCP schema. The
// MCP schema format has no notion of an optional-with-default parameter, so
// every parameter is declared nullable instead and the normalizer treats an
// explicit null as "not provided".
func toMCPTool(def tools.Definition) MCPTool {
	properties := make(map[string]any, len(def.Parameters.Properties))
	for name, prop := range def.Parameters.Properties {
		properties[name] = toNullableProperty(prop)
	}

	return MCPTool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": properties,
		},
	}
}

func toNullableProperty(prop tools.Property) map[string]any {
	schema := map[string]any{
		"type":        []string{prop.Type, "null"},
		"description": prop.Description,
	}
	if prop.Default != nil {
		schema["default"] = prop.Default
	}
	if prop.Minimum != nil {
		schema["minimum"] = *prop.Minimum
	}
	if prop.Maximum != nil {
		schema["maximum"] = *prop.Maximum
	}
	if prop.Items != nil {
		schema["items"] = map[string]any{"type": prop.Items.Type}
	}
	if len(prop.Enum) > 0 {
		schema["enum"] = prop.Enum
	}
	return schema
}
