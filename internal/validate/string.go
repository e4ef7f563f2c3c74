package validate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default messages shared by the validators.
const (
	MsgRequired = "Value is required"
	MsgString   = "Value must be a string"
	MsgPattern  = "Value has an invalid format"
	MsgChoice   = "Value is not one of the allowed choices"
)

// String validates v as text. Surrounding whitespace is trimmed, numbers and
// booleans are converted to their text form and an empty string counts as
// absent. Min and Max bound the length in characters.
func String(v any, o Options) ([]string, *string) {
	s, ok, present := toString(v)
	if !present {
		if o.IsRequired() {
			return []string{message(o.Required, MsgRequired)}, nil
		}
		return nil, nil
	}
	if !ok {
		return []string{MsgString}, nil
	}

	var errs []string
	n := utf8.RuneCountInString(s)
	if o.Min != nil && float64(n) < o.Min.Value {
		errs = append(errs, message(o.Min,
			fmt.Sprintf("Value must be at least %s characters", formatFloat(o.Min.Value))))
	}
	if o.Max != nil && float64(n) > o.Max.Value {
		errs = append(errs, message(o.Max,
			fmt.Sprintf("Value must be at most %s characters", formatFloat(o.Max.Value))))
	}
	if o.Regex != nil && o.Regex.Value != nil && !o.Regex.Value.MatchString(s) {
		errs = append(errs, message(o.Regex, MsgPattern))
	}
	if o.Choices != nil && !slices.Contains(o.Choices.Value, s) {
		errs = append(errs, message(o.Choices, MsgChoice))
	}
	return errs, &s
}

// toString converts v to trimmed text. present is false for nil and for
// strings that are empty after trimming; ok is false for values that have no
// text form (objects, arrays).
func toString(v any) (s string, ok, present bool) {
	switch t := v.(type) {
	case nil:
		return "", false, false
	case string:
		s = strings.TrimSpace(t)
		return s, true, s != ""
	case json.Number:
		return t.String(), true, true
	case float64:
		return formatFloat(t), true, true
	case float32:
		return formatFloat(float64(t)), true, true
	case int:
		return strconv.Itoa(t), true, true
	case int64:
		return strconv.FormatInt(t, 10), true, true
	case bool:
		return strconv.FormatBool(t), true, true
	default:
		return "", false, true
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
