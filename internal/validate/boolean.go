package validate

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MsgBoolean is reported for values that are not booleans.
const MsgBoolean = "Value must be a boolean"

// Boolean validates v as a boolean. The strings accepted by
// strconv.ParseBool and the numbers 0 and 1 are coerced.
func Boolean(v any, o Options) ([]string, *bool) {
	var b bool
	switch t := v.(type) {
	case nil:
		if o.IsRequired() {
			return []string{message(o.Required, MsgRequired)}, nil
		}
		return nil, nil
	case bool:
		b = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			if o.IsRequired() {
				return []string{message(o.Required, MsgRequired)}, nil
			}
			return nil, nil
		}
		parsed, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return []string{MsgBoolean}, nil
		}
		b = parsed
	case float64, int, int64, json.Number:
		f, _, _ := toFloat(t)
		switch f {
		case 0:
			b = false
		case 1:
			b = true
		default:
			return []string{MsgBoolean}, nil
		}
	default:
		return []string{MsgBoolean}, nil
	}
	return nil, &b
}
