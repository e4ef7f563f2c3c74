package validate

import (
	"fmt"
	"strings"
	"time"
)

// Storage layouts for date and date-time values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339
)

// Messages for unparsable dates.
const (
	MsgDate     = "Value must be a valid date"
	MsgDateTime = "Value must be a valid date and time"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Date validates v as a calendar date. It accepts YYYY-MM-DD and full
// date-time strings, in which case the time of day is dropped. The result is
// midnight UTC.
func Date(v any, o Options) ([]string, *time.Time) {
	t, ok, present := toTime(v)
	if !present {
		if o.IsRequired() {
			return []string{message(o.Required, MsgRequired)}, nil
		}
		return nil, nil
	}
	if !ok {
		return []string{MsgDate}, nil
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return checkBounds(t, o, DateLayout), &t
}

// DateTime validates v as an instant. The result is in UTC.
func DateTime(v any, o Options) ([]string, *time.Time) {
	t, ok, present := toTime(v)
	if !present {
		if o.IsRequired() {
			return []string{message(o.Required, MsgRequired)}, nil
		}
		return nil, nil
	}
	if !ok {
		return []string{MsgDateTime}, nil
	}
	t = t.UTC()
	return checkBounds(t, o, DateTimeLayout), &t
}

// ParseTime parses s using the accepted date and date-time layouts.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func checkBounds(t time.Time, o Options, layout string) []string {
	var errs []string
	if o.MinTime != nil && t.Before(o.MinTime.Value) {
		errs = append(errs, message(o.MinTime,
			fmt.Sprintf("Value must be on or after %s", o.MinTime.Value.Format(layout))))
	}
	if o.MaxTime != nil && t.After(o.MaxTime.Value) {
		errs = append(errs, message(o.MaxTime,
			fmt.Sprintf("Value must be on or before %s", o.MaxTime.Value.Format(layout))))
	}
	return errs
}

func toTime(v any) (t time.Time, ok, present bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, false
	case time.Time:
		return x, true, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false, false
		}
		t, ok := ParseTime(s)
		return t, ok, true
	default:
		return time.Time{}, false, true
	}
}
