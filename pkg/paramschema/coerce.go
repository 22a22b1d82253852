package paramschema

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoDateLayout is the canonical coerced form for KindDate values.
const isoDateLayout = "2006-01-02"

// looseDateRE matches a date missing zero-padding, e.g. "2026-2-8".
var looseDateRE = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// Coerce converts a raw value into the Go representation for kind k:
//
//	KindString  -> string
//	KindBool    -> bool
//	KindInt     -> int64
//	KindDecimal -> *big.Float
//	KindDate    -> string, normalized to YYYY-MM-DD
//	KindEnum    -> string, unchanged (Schema.Validate normalizes it against EnumValues)
//
// It accepts the "accept int or string and coerce" duck-typing the source
// exhibits, but returns a typed value and an error instead of raising.
func Coerce(k Kind, raw any) (any, error) {
	switch k {
	case KindString, KindEnum:
		return coerceString(raw)
	case KindBool:
		return coerceBool(raw)
	case KindInt:
		return coerceInt(raw)
	case KindDecimal:
		return coerceDecimal(raw)
	case KindDate:
		return coerceDate(raw)
	default:
		return nil, fmt.Errorf("unknown parameter kind %q", k)
	}
}

func coerceString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", raw), nil
	}
}

func coerceBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot parse %q as bool", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot coerce %T to bool", raw)
	}
}

func coerceInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || !isAllDigits(s) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("cannot parse %q as integer", v)
			}
			return n, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", raw)
	}
}

// isAllDigits reports whether s (optionally signed) contains only digits.
func isAllDigits(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func coerceDecimal(raw any) (*big.Float, error) {
	switch v := raw.(type) {
	case *big.Float:
		return v, nil
	case float64:
		return big.NewFloat(v), nil
	case int:
		return big.NewFloat(float64(v)), nil
	case string:
		f, ok := new(big.Float).SetString(strings.TrimSpace(v))
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as decimal", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to decimal", raw)
	}
}

func coerceDate(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("cannot coerce %T to date", raw)
	}
	s = strings.TrimSpace(s)
	if _, err := time.Parse(isoDateLayout, s); err == nil {
		return s, nil
	}
	if normalized, ok := NormalizeLooseDate(s); ok {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid date format: %s", s)
}

// NormalizeLooseDate rewrites a "YYYY-M-D" date missing zero-padding (e.g.
// "2026-2-8") into "YYYY-MM-DD". Returns ("", false) when raw does not match
// the loose pattern at all.
func NormalizeLooseDate(raw string) (string, bool) {
	m := looseDateRE.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	year, month, day := m[1], m[2], m[3]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	normalized := fmt.Sprintf("%s-%s-%s", year, month, day)
	if _, err := time.Parse(isoDateLayout, normalized); err != nil {
		return "", false
	}
	return normalized, true
}

// NormalizeEnumValue rewrites whitespace to underscores and lowercases the
// value, returning it only if it matches one of allowed.
func NormalizeEnumValue(raw string, allowed []string) (string, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(raw), "_"))
	for _, v := range allowed {
		if v == normalized {
			return normalized, true
		}
	}
	return "", false
}
