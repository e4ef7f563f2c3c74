package validate

import (
	"fmt"
)

// Shape messages for values of the wrong container type.
const (
	MsgArray  = "Value must be an array"
	MsgObject = "Value must be an object"
)

// ArrayResult is the outcome of Array. Errors apply to the array as a whole.
// ItemErrors is aligned with the input elements and holds "" for elements
// that passed; it is nil when no element failed. Value is aligned the same
// way: it holds the coerced element at its input index and nil where the
// element was absent or invalid. Dates and date-times are rendered with
// DateLayout and DateTimeLayout.
type ArrayResult struct {
	Errors     []string
	ItemErrors []string
	Value      []any
}

// Failed reports whether any array or element error was recorded.
func (r ArrayResult) Failed() bool {
	return len(r.Errors) > 0 || len(r.ItemErrors) > 0
}

// Compact returns the coerced elements without the nil placeholders.
func (r ArrayResult) Compact() []any {
	if r.Value == nil {
		return nil
	}
	out := make([]any, 0, len(r.Value))
	for _, v := range r.Value {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Array validates v as a list. An empty list counts as absent for Required.
func Array(v any, o ArrayOptions) ArrayResult {
	var res ArrayResult

	items, ok, present := toSlice(v)
	if !present || (ok && len(items) == 0) {
		if o.Required != nil && o.Required.Value {
			res.Errors = append(res.Errors, message(o.Required, MsgRequired))
		}
		if ok {
			res.Value = []any{}
		}
		return res
	}
	if !ok {
		res.Errors = append(res.Errors, MsgArray)
		return res
	}

	if o.Max != nil && float64(len(items)) > o.Max.Value {
		res.Errors = append(res.Errors, message(o.Max,
			fmt.Sprintf("Value must contain at most %s items", formatFloat(o.Max.Value))))
	}

	res.Value = make([]any, len(items))
	itemErrs := make([]string, len(items))
	failed := false
	for i, item := range items {
		errs, val := element(item, o.Kind, o.Item)
		if len(errs) > 0 {
			itemErrs[i] = errs[0]
			failed = true
			continue
		}
		res.Value[i] = val
	}
	if failed {
		res.ItemErrors = itemErrs
	}

	if o.Unique != nil && o.Unique.Value && hasDuplicates(res.Value) {
		res.Errors = append(res.Errors, message(o.Unique, "Value must contain unique items"))
	}
	return res
}

// element validates a single list element according to kind. The returned
// value is nil when the element is absent.
func element(v any, kind Kind, o Options) ([]string, any) {
	switch kind {
	case KindString:
		errs, s := String(v, o)
		if s == nil {
			return errs, nil
		}
		return errs, *s
	case KindNumber:
		errs, f := Number(v, o)
		if f == nil {
			return errs, nil
		}
		return errs, *f
	case KindDate:
		errs, t := Date(v, o)
		if t == nil {
			return errs, nil
		}
		return errs, t.Format(DateLayout)
	case KindDateTime:
		errs, t := DateTime(v, o)
		if t == nil {
			return errs, nil
		}
		return errs, t.Format(DateTimeLayout)
	default:
		return nil, v
	}
}

func toSlice(v any) (items []any, ok, present bool) {
	switch t := v.(type) {
	case nil:
		return nil, false, false
	case []any:
		return t, true, true
	case []string:
		items = make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return items, true, true
	case []float64:
		items = make([]any, len(t))
		for i, f := range t {
			items[i] = f
		}
		return items, true, true
	default:
		return nil, false, true
	}
}

func hasDuplicates(values []any) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		k := fmt.Sprintf("%T:%v", v, v)
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}
