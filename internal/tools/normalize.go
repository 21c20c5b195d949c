package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	gwerrors "tourgate/internal/errors"
)

// Normalize validates raw caller arguments against a tool's schema and returns
// the canonical argument map: defaults applied, numerics as int/float64,
// arrays as []string. An explicit null is treated the same as "not provided"
// because the protocol boundary declares every parameter nullable instead of
// optional. Unknown keys are dropped.
func Normalize(def Definition, raw map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(def.Parameters.Properties))

	for name, prop := range def.Parameters.Properties {
		value, present := raw[name]
		if !present || value == nil {
			defaulted, err := coerce(def.Name, name, prop, prop.Default)
			if err != nil {
				return nil, err
			}
			normalized[name] = defaulted
			continue
		}

		coerced, err := coerce(def.Name, name, prop, value)
		if err != nil {
			return nil, err
		}
		normalized[name] = coerced
	}

	return normalized, nil
}

func coerce(tool, field string, prop Property, value any) (any, error) {
	if value == nil {
		return zeroValue(prop.Type), nil
	}

	switch prop.Type {
	case "integer":
		n, err := coerceInt(tool, field, value)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(tool, field, prop, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case "number":
		f, err := coerceFloat(tool, field, value)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(tool, field, prop, f); err != nil {
			return nil, err
		}
		return f, nil

	case "string":
		s, ok := value.(string)
		if !ok {
			return nil, gwerrors.NewValidationError(tool, field, "expected a string, got %T", value)
		}
		return strings.TrimSpace(s), nil

	case "array":
		return coerceStringList(tool, field, value)

	case "boolean":
		b, ok := value.(bool)
		if !ok {
			return nil, gwerrors.NewValidationError(tool, field, "expected a boolean, got %T", value)
		}
		return b, nil

	default:
		return value, nil
	}
}

func zeroValue(schemaType string) any {
	switch schemaType {
	case "integer":
		return 0
	case "number":
		return 0.0
	case "string":
		return ""
	case "array":
		return []string(nil)
	case "boolean":
		return false
	default:
		return nil
	}
}

func coerceInt(tool, field string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, gwerrors.NewValidationError(tool, field, "expected an integer, got %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, gwerrors.NewValidationError(tool, field, "expected an integer, got %q", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, gwerrors.NewValidationError(tool, field, "expected an integer, got %q", v)
		}
		return n, nil
	default:
		return 0, gwerrors.NewValidationError(tool, field, "expected an integer, got %T", value)
	}
}

func coerceFloat(tool, field string, value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, gwerrors.NewValidationError(tool, field, "expected a number, got %q", v.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, gwerrors.NewValidationError(tool, field, "expected a number, got %q", v)
		}
		return f, nil
	default:
		return 0, gwerrors.NewValidationError(tool, field, "expected a number, got %T", value)
	}
}

func coerceStringList(tool, field string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return trimmedNonEmpty(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, gwerrors.NewValidationError(tool, field, "expected an array of strings, got element of type %T", item)
			}
			out = append(out, s)
		}
		return trimmedNonEmpty(out), nil
	case string:
		// Some clients hand over a single name or a comma-separated list.
		return trimmedNonEmpty(strings.Split(v, ",")), nil
	default:
		return nil, gwerrors.NewValidationError(tool, field, "expected an array of strings, got %T", value)
	}
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func checkBounds(tool, field string, prop Property, value float64) error {
	if prop.Minimum != nil && value < *prop.Minimum {
		return gwerrors.NewValidationError(tool, field, "%v is below the minimum of %v", value, *prop.Minimum)
	}
	if prop.Maximum != nil && value > *prop.Maximum {
		return gwerrors.NewValidationError(tool, field, "%v is above the maximum of %v", value, *prop.Maximum)
	}
	return nil
}
