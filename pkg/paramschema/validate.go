package paramschema

import "math/big"

// Validate coerces and checks every declared parameter of s against params,
// returning the validated/coerced map (defaults applied) plus any
// field-level errors. Unknown keys in params that are not declared in s are
// passed through unchanged — the schema only governs its own fields.
func (s Schema) Validate(params map[string]any) (map[string]any, ValidationErrors) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	var errs ValidationErrors
	for _, def := range s {
		raw, present := params[def.Name]
		if !present {
			if def.Required {
				errs = append(errs, FieldError{Field: def.Name, Reason: "missing required field"})
				continue
			}
			if def.Default != nil {
				out[def.Name] = def.Default
			}
			continue
		}

		coerced, err := Coerce(def.Kind, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: def.Name, Reason: err.Error()})
			continue
		}

		if def.Kind == KindEnum {
			str, _ := coerced.(string)
			allowed := def.Constraints.EnumValues
			if len(allowed) > 0 && !contains(allowed, str) {
				if normalized, ok := NormalizeEnumValue(str, allowed); ok {
					coerced = normalized
				} else {
					errs = append(errs, FieldError{Field: def.Name, Reason: "not one of " + joinValues(allowed)})
					continue
				}
			}
		}

		if reason, ok := checkConstraints(def, coerced); !ok {
			errs = append(errs, FieldError{Field: def.Name, Reason: reason})
			continue
		}

		out[def.Name] = coerced
	}

	return out, errs
}

func checkConstraints(def Def, v any) (string, bool) {
	c := def.Constraints
	switch def.Kind {
	case KindString, KindEnum:
		s, _ := v.(string)
		if c.MinLength != nil && len(s) < *c.MinLength {
			return "shorter than minimum length", false
		}
		if c.MaxLength != nil && len(s) > *c.MaxLength {
			return "longer than maximum length", false
		}
	case KindInt:
		n, _ := v.(int64)
		if c.Min != nil && float64(n) < *c.Min {
			return "below minimum value", false
		}
		if c.Max != nil && float64(n) > *c.Max {
			return "above maximum value", false
		}
	case KindDecimal:
		f, _ := v.(*big.Float)
		if f != nil {
			fv, _ := f.Float64()
			if c.Min != nil && fv < *c.Min {
				return "below minimum value", false
			}
			if c.Max != nil && fv > *c.Max {
				return "above maximum value", false
			}
		}
	}
	return "", true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func joinValues(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}
