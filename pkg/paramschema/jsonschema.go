package paramschema

// ExportJSONSchema renders a Schema as a JSON-Schema "object" descriptor
// suitable for LLM function-calling (spec.md §4.D: "JSON-schema export for
// LLM function-calling"). Built directly off plain maps since no
// JSON-schema library exists anywhere in the retrieved pack — this is a
// handful of field mappings, not a JSON-schema validator, so stdlib
// encoding/json (via the caller marshaling this map) is the right tool.
func ExportJSONSchema(s Schema) map[string]any {
	properties := make(map[string]any, len(s))
	var required []string

	for _, d := range s {
		properties[d.Name] = propertySchema(d)
		if d.Required {
			required = append(required, d.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func propertySchema(d Def) map[string]any {
	prop := map[string]any{
		"type":        jsonType(d.Kind),
		"description": d.Description,
	}
	if d.Default != nil {
		prop["default"] = d.Default
	}
	if d.Kind == KindEnum && len(d.Constraints.EnumValues) > 0 {
		prop["enum"] = d.Constraints.EnumValues
	}
	if d.Kind == KindDate {
		prop["format"] = "date"
	}
	if d.Constraints.MinLength != nil {
		prop["minLength"] = *d.Constraints.MinLength
	}
	if d.Constraints.MaxLength != nil {
		prop["maxLength"] = *d.Constraints.MaxLength
	}
	if d.Constraints.Min != nil {
		prop["minimum"] = *d.Constraints.Min
	}
	if d.Constraints.Max != nil {
		prop["maximum"] = *d.Constraints.Max
	}
	if d.Constraints.FormatRE != "" {
		prop["pattern"] = d.Constraints.FormatRE
	}
	return prop
}

func jsonType(k Kind) string {
	switch k {
	case KindInt:
		return "integer"
	case KindDecimal:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}
