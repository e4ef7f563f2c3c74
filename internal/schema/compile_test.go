package schema

import (
	"testing"
	"time"

	"github.com/GyroZepelix/mithril-content/internal/validate"
)

func TestFieldType(t *testing.T) {
	if !FieldTypeListDate.IsList() || FieldTypeDate.IsList() {
		t.Error("IsList mismatch")
	}
	if got := FieldTypeListURL.Elem(); got != FieldTypeURL {
		t.Errorf("Elem() = %q, want %q", got, FieldTypeURL)
	}
	if !FieldTypeListDateTime.IsDate() || FieldTypeNumberDecimal.IsDate() {
		t.Error("IsDate mismatch")
	}
	if FieldType("list.boolean").Valid() {
		t.Error("list.boolean must not be a valid type")
	}
	for _, ft := range FieldTypes {
		if !ft.Valid() {
			t.Errorf("%q should be valid", ft)
		}
	}
}

func TestCheckRuleValue(t *testing.T) {
	tests := []struct {
		name      string
		rule      Rule
		fieldType FieldType
		wantErr   string
		wantItems bool
		want      any
	}{
		{"required coerces", Rule{Code: RuleRequired, Type: ValueTypeCheckbox, Value: "true"}, FieldTypeSingleLineText, "", false, true},
		{"min negative", Rule{Code: RuleMin, Type: ValueTypeNumber, Value: -1.0}, FieldTypeNumberInteger, msgMinPositive, false, -1.0},
		{"max negative", Rule{Code: RuleMax, Type: ValueTypeNumber, Value: -1.0}, FieldTypeNumberInteger, msgMaxPositive, false, -1.0},
		{"min on date field", Rule{Code: RuleMin, Type: ValueTypeDate, Value: "2024-01-02"}, FieldTypeDate, "", false, "2024-01-02"},
		{"max on date field by field type", Rule{Code: RuleMax, Type: ValueTypeNumber, Value: "2024-01-02T10:00:00Z"}, FieldTypeListDateTime, "", false, "2024-01-02T10:00:00Z"},
		{"date min on number field", Rule{Code: RuleMin, Type: ValueTypeDate, Value: "2024-01-01"}, FieldTypeNumberInteger, validate.MsgNumber, false, nil},
		{"date-time max on text field", Rule{Code: RuleMax, Type: ValueTypeDateTime, Value: "2024-01-02T10:00:00Z"}, FieldTypeSingleLineText, validate.MsgNumber, false, nil},
		{"numeric min on number field typed as date", Rule{Code: RuleMin, Type: ValueTypeDate, Value: 5.0}, FieldTypeNumberInteger, "", false, 5.0},
		{"precision too high", Rule{Code: RuleMaxPrecision, Type: ValueTypeNumber, Value: 10.0}, FieldTypeNumberDecimal, msgPrecisionTooHigh, false, 10.0},
		{"precision negative", Rule{Code: RuleMaxPrecision, Type: ValueTypeNumber, Value: -2.0}, FieldTypeNumberDecimal, msgPrecisionNegative, false, -2.0},
		{"regex invalid", Rule{Code: RuleRegex, Type: ValueTypeText, Value: "(["}, FieldTypeSingleLineText, msgInvalidRegex, false, "(["},
		{"choices duplicate", Rule{Code: RuleChoices, Type: ValueTypeListText, Value: []any{"a", "a"}}, FieldTypeSingleLineText, msgDuplicateChoices, false, []string{"a", "a"}},
		{"choices too many", Rule{Code: RuleChoices, Type: ValueTypeListText, Value: []any{"a", "b", "c", "d", "e", "f"}}, FieldTypeSingleLineText, msgTooManyChoices, false, []string{"a", "b", "c", "d", "e", "f"}},
		{"field reference", Rule{Code: RuleFieldReference, Type: ValueTypeText, Value: "title"}, FieldTypeURLHandle, "", false, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := CheckRuleValue(tt.rule, tt.fieldType)
			gotErr := ""
			if len(rv.Errors) > 0 {
				gotErr = rv.Errors[0]
			}
			if gotErr != tt.wantErr {
				t.Errorf("error = %q, want %q", gotErr, tt.wantErr)
			}
			if (len(rv.ItemErrors) > 0) != tt.wantItems {
				t.Errorf("item errors = %v", rv.ItemErrors)
			}
			if !equalValue(rv.Value, tt.want) {
				t.Errorf("value = %#v, want %#v", rv.Value, tt.want)
			}
		})
	}
}

func TestCheckRuleValue_LongChoiceIsPositional(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	rv := CheckRuleValue(Rule{Code: RuleChoices, Value: []any{"ok", string(long)}}, FieldTypeSingleLineText)
	if len(rv.ItemErrors) != 2 || rv.ItemErrors[1] != msgInvalidChoice {
		t.Fatalf("ItemErrors = %v", rv.ItemErrors)
	}
}

func TestCompile(t *testing.T) {
	t.Run("text field", func(t *testing.T) {
		c, err := Compile([]Rule{
			{Code: RuleRequired, Type: ValueTypeCheckbox, Value: true},
			{Code: RuleUnique, Type: ValueTypeCheckbox, Value: false},
			{Code: RuleMin, Type: ValueTypeNumber, Value: 3.0},
			{Code: RuleMax, Type: ValueTypeNumber, Value: 10.0},
			{Code: RuleRegex, Type: ValueTypeText, Value: "^[a-z]+$"},
			{Code: RuleChoices, Type: ValueTypeListText, Value: []any{"abc", "def"}},
		}, FieldTypeSingleLineText)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		if !c.IsRequired() || c.IsUnique() {
			t.Error("required/unique mismatch")
		}
		if c.Min.Value != 3 || c.Max.Value != 10 {
			t.Errorf("bounds = %v..%v", c.Min.Value, c.Max.Value)
		}
		if !c.Regex.Value.MatchString("abc") {
			t.Error("regex not compiled")
		}
		if len(c.Choices.Value) != 2 {
			t.Errorf("choices = %v", c.Choices.Value)
		}
	})

	t.Run("date bounds", func(t *testing.T) {
		c, err := Compile([]Rule{
			{Code: RuleMin, Type: ValueTypeDate, Value: "2024-01-01"},
			{Code: RuleMax, Type: ValueTypeDate, Value: "2024-12-31"},
		}, FieldTypeDate)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		if c.Min != nil || c.Max != nil {
			t.Error("date field must not get numeric bounds")
		}
		want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		if !c.MaxTime.Value.Equal(want) {
			t.Errorf("MaxTime = %v, want %v", c.MaxTime.Value, want)
		}
	})

	t.Run("date-typed bound on number field", func(t *testing.T) {
		_, err := Compile([]Rule{{Code: RuleMin, Type: ValueTypeDate, Value: "2024-01-01"}}, FieldTypeNumberInteger)
		if err == nil {
			t.Fatal("expected error for date min on a number field")
		}

		c, err := Compile([]Rule{{Code: RuleMin, Type: ValueTypeDate, Value: 5.0}}, FieldTypeNumberInteger)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		if c.MinTime != nil || c.Min == nil || c.Min.Value != 5 {
			t.Errorf("bound must be numeric: Min=%v MinTime=%v", c.Min, c.MinTime)
		}
	})

	t.Run("url handle references", func(t *testing.T) {
		c, err := Compile([]Rule{
			{Code: RuleFieldReference, Type: ValueTypeText, Value: "title"},
			{Code: RuleTransliteration, Type: ValueTypeCheckbox, Value: true},
			{Code: RuleMaxPrecision, Type: ValueTypeNumber, Value: 2.0},
		}, FieldTypeURLHandle)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		if c.FieldReference != "title" || !c.Transliteration || c.MaxPrecision.Value != 2 {
			t.Errorf("unexpected constraints: %+v", c)
		}
	})

	t.Run("malformed rule", func(t *testing.T) {
		if _, err := Compile([]Rule{{Code: RuleMin, Value: "abc"}}, FieldTypeNumberInteger); err == nil {
			t.Error("expected error for non-numeric min")
		}
		if _, err := Compile([]Rule{{Code: "bogus", Value: true}}, FieldTypeNumberInteger); err == nil {
			t.Error("expected error for unknown code")
		}
	})

	t.Run("absent value skipped", func(t *testing.T) {
		c, err := Compile([]Rule{{Code: RuleRequired, Value: nil}}, FieldTypeColor)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		if c.Required != nil {
			t.Error("nil rule value must not set required")
		}
	})
}

func equalValue(a, b any) bool {
	as, aok := a.([]string)
	bs, bok := b.([]string)
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
