package schema

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// Constraints is the compiled form of a field's validation rules.
type Constraints struct {
	validate.Options

	// FieldReference is the key of the field a url_handle derives from.
	FieldReference string

	// ContentReference is the id of the Content that referenced entries
	// belong to.
	ContentReference string

	// Transliteration slugifies explicit url_handle values.
	Transliteration bool
}

// Messages reported for invalid rule values.
const (
	msgMinPositive       = "Validations contains an invalid value: 'min' must be positive."
	msgMaxPositive       = "Validations contains an invalid value: 'max' must be positive."
	msgPrecisionTooHigh  = "Validations 'max_precision' can't exceed the precision of 9."
	msgPrecisionNegative = "Validations 'max_precision' can't be a negative number."
	msgPrecisionWhole    = "Validations 'max_precision' must be a whole number."
	msgDuplicateChoices  = "Validations has duplicate choices."
	msgTooManyChoices    = "Validations contains a lot of choices."
	msgInvalidChoice     = "Validations contains an invalid value."
	msgInvalidRegex      = "Validations contains an invalid regular expression."
)

const (
	maxChoices             = 5
	maxChoiceLength        = 255
	maxRegexLength         = 255
	maxPrecisionUpperBound = 9
)

// RuleValue is the checked and coerced value of a rule.
type RuleValue struct {
	// Value is a bool, float64, string or []string depending on the rule
	// code. Dates are rendered in storage layout. Nil when the raw value was
	// absent.
	Value any

	// Errors apply to the value as a whole, ItemErrors to the elements of a
	// choices list.
	Errors     []string
	ItemErrors []string
}

// CheckRuleValue validates the raw value of r for a field of type t.
func CheckRuleValue(r Rule, t FieldType) RuleValue {
	var out RuleValue
	switch r.Code {
	case RuleRequired, RuleUnique, RuleTransliteration:
		errs, b := validate.Boolean(r.Value, validate.Options{})
		out.Errors = errs
		if b != nil {
			out.Value = *b
		}

	case RuleMin, RuleMax:
		msg := msgMinPositive
		if r.Code == RuleMax {
			msg = msgMaxPositive
		}
		switch boundKind(t) {
		case FieldTypeDate:
			errs, d := validate.Date(r.Value, validate.Options{})
			out.Errors = errs
			if d != nil {
				out.Value = d.Format(validate.DateLayout)
			}
		case FieldTypeDateTime:
			errs, d := validate.DateTime(r.Value, validate.Options{})
			out.Errors = errs
			if d != nil {
				out.Value = d.Format(validate.DateTimeLayout)
			}
		default:
			errs, f := validate.Number(r.Value, validate.Options{Min: validate.With(0.0, msg)})
			out.Errors = errs
			if f != nil {
				out.Value = *f
			}
		}

	case RuleMaxPrecision:
		errs, f := validate.Number(r.Value, validate.Options{
			Max: validate.With(float64(maxPrecisionUpperBound), msgPrecisionTooHigh),
			Min: validate.With(0.0, msgPrecisionNegative),
		})
		if f != nil && len(errs) == 0 && *f != math.Trunc(*f) {
			errs = append(errs, msgPrecisionWhole)
		}
		out.Errors = errs
		if f != nil {
			out.Value = *f
		}

	case RuleRegex:
		errs, s := validate.String(r.Value, validate.Options{Max: validate.Is(float64(maxRegexLength))})
		if s != nil && len(errs) == 0 {
			if _, err := regexp.Compile(*s); err != nil {
				errs = append(errs, msgInvalidRegex)
			}
		}
		out.Errors = errs
		if s != nil {
			out.Value = *s
		}

	case RuleChoices:
		res := validate.Array(r.Value, validate.ArrayOptions{
			Unique: validate.With(true, msgDuplicateChoices),
			Max:    validate.With(float64(maxChoices), msgTooManyChoices),
			Kind:   validate.KindString,
			Item:   validate.Options{Max: validate.With(float64(maxChoiceLength), msgInvalidChoice)},
		})
		out.Errors = res.Errors
		out.ItemErrors = res.ItemErrors
		if items := res.Compact(); items != nil {
			choices := make([]string, 0, len(items))
			for _, v := range items {
				choices = append(choices, v.(string))
			}
			out.Value = choices
		}

	case RuleFieldReference, RuleContentReference:
		errs, s := validate.String(r.Value, validate.Options{})
		out.Errors = errs
		if s != nil {
			out.Value = *s
		}
	}
	return out
}

// boundKind returns the kind of value a min or max rule bounds on a field
// of type t: date, date_time, or "" for numbers and lengths.
func boundKind(t FieldType) FieldType {
	if t.IsDate() {
		return t.Elem()
	}
	return ""
}

// Compile turns the stored rules of a field of type t into constraints.
// Rules are expected to have passed CheckRuleValue; a malformed rule is
// reported as an error.
func Compile(rules []Rule, t FieldType) (Constraints, error) {
	var c Constraints
	for _, r := range rules {
		if !r.Code.Valid() {
			return Constraints{}, fmt.Errorf("compiling rule: unknown code %q", r.Code)
		}
		rv := CheckRuleValue(r, t)
		if len(rv.Errors) > 0 || len(rv.ItemErrors) > 0 {
			return Constraints{}, fmt.Errorf("compiling rule %q: invalid value %v", r.Code, r.Value)
		}
		if rv.Value == nil {
			continue
		}

		switch r.Code {
		case RuleRequired:
			c.Required = validate.Is(rv.Value.(bool))
		case RuleUnique:
			c.Unique = validate.Is(rv.Value.(bool))
		case RuleTransliteration:
			c.Transliteration = rv.Value.(bool)
		case RuleMin, RuleMax:
			if err := c.setBound(r, t, rv.Value); err != nil {
				return Constraints{}, err
			}
		case RuleMaxPrecision:
			c.MaxPrecision = validate.Is(int(rv.Value.(float64)))
		case RuleRegex:
			re, err := regexp.Compile(rv.Value.(string))
			if err != nil {
				return Constraints{}, fmt.Errorf("compiling regex rule: %w", err)
			}
			c.Regex = validate.Is(re)
		case RuleChoices:
			c.Choices = validate.Is(rv.Value.([]string))
		case RuleFieldReference:
			c.FieldReference = rv.Value.(string)
		case RuleContentReference:
			c.ContentReference = rv.Value.(string)
		}
	}
	return c, nil
}

// setBound stores a checked min or max value as a number or time bound.
func (c *Constraints) setBound(r Rule, t FieldType, v any) error {
	kind := boundKind(t)
	if kind == "" {
		f := validate.Is(v.(float64))
		if r.Code == RuleMin {
			c.Min = f
		} else {
			c.Max = f
		}
		return nil
	}

	layout := validate.DateLayout
	if kind == FieldTypeDateTime {
		layout = validate.DateTimeLayout
	}
	tm, err := time.Parse(layout, v.(string))
	if err != nil {
		return fmt.Errorf("compiling %s rule: %w", r.Code, err)
	}
	if r.Code == RuleMin {
		c.MinTime = validate.Is(tm)
	} else {
		c.MaxTime = validate.Is(tm)
	}
	return nil
}
