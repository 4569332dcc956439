package registry

// InputSchema renders the parameter list as a JSON Schema object. Property
// order is not significant in JSON Schema; the ordered list stays available
// through Params.
func (c *Command) InputSchema() map[string]any {
	properties := make(map[string]any, len(c.Params))
	required := make([]string, 0, len(c.Params))

	for _, p := range c.Params {
		prop := paramSchema(p.Type)
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		properties[p.Name] = prop
		if !p.Optional {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func paramSchema(t ParamType) map[string]any {
	switch t {
	case TypeStringList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case TypeIntegerList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "integer"}}
	default:
		return map[string]any{"type": string(t)}
	}
}
