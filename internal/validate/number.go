package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MsgNumber is reported for values that are not numeric.
const MsgNumber = "Value must be a number"

// Number validates v as a number. Numeric strings are coerced, an empty
// string counts as absent. MaxPrecision bounds the number of decimal digits.
func Number(v any, o Options) ([]string, *float64) {
	f, ok, present := toFloat(v)
	if !present {
		if o.IsRequired() {
			return []string{message(o.Required, MsgRequired)}, nil
		}
		return nil, nil
	}
	if !ok {
		return []string{MsgNumber}, nil
	}

	var errs []string
	if o.Min != nil && f < o.Min.Value {
		errs = append(errs, message(o.Min,
			fmt.Sprintf("Value must be greater than or equal to %s", formatFloat(o.Min.Value))))
	}
	if o.Max != nil && f > o.Max.Value {
		errs = append(errs, message(o.Max,
			fmt.Sprintf("Value must be less than or equal to %s", formatFloat(o.Max.Value))))
	}
	if o.MaxPrecision != nil && Precision(f) > o.MaxPrecision.Value {
		errs = append(errs, message(o.MaxPrecision,
			fmt.Sprintf("Value must have at most %d decimal places", o.MaxPrecision.Value)))
	}
	if o.Choices != nil {
		found := false
		for _, c := range o.Choices.Value {
			if cf, err := strconv.ParseFloat(c, 64); err == nil && cf == f {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, message(o.Choices, MsgChoice))
		}
	}
	return errs, &f
}

// Precision returns the number of decimal digits in the shortest decimal
// representation of f.
func Precision(f float64) int {
	s := formatFloat(f)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func toFloat(v any) (f float64, ok, present bool) {
	switch t := v.(type) {
	case nil:
		return 0, false, false
	case float64:
		return t, finite(t), true
	case float32:
		return float64(t), finite(float64(t)), true
	case int:
		return float64(t), true, true
	case int64:
		return float64(t), true, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && finite(f), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && finite(f), true
	default:
		return 0, false, true
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
