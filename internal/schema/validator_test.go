package schema

import (
	"context"
	"fmt"
	"testing"

	"github.com/GyroZepelix/mithril-content/internal/unique"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// stubChecker reports a conflict for values listed in taken.
type stubChecker struct {
	taken   map[string]bool
	queries []unique.Query
}

func (s *stubChecker) Check(ctx context.Context, q unique.Query, value any) unique.Result {
	s.queries = append(s.queries, q)
	if s.taken[fmt.Sprint(value)] {
		return unique.Conflict
	}
	return unique.Unique
}

func newTestValidator(taken ...string) (*Validator, *stubChecker) {
	sc := &stubChecker{taken: map[string]bool{}}
	for _, t := range taken {
		sc.taken[t] = true
	}
	v := NewValidator(sc)
	n := 0
	v.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return v, sc
}

// hasError reports whether errs holds message at path.
func hasError(errs validate.Errors, path validate.Path, message string) bool {
	for _, e := range errs.List() {
		if e.Field.String() == path.String() && (message == "" || e.Message == message) {
			return true
		}
	}
	return false
}

func validContent() map[string]any {
	return map[string]any{
		"name": "Products",
		"code": "products",
		"entries": map[string]any{
			"fields": []any{
				map[string]any{
					"type": "single_line_text",
					"name": "Title",
					"key":  "title",
					"validations": []any{
						map[string]any{"code": "required", "type": "checkbox", "value": true},
					},
				},
				map[string]any{
					"type": "number_decimal",
					"name": "Price",
					"key":  "price",
					"unit": "EUR",
					"validations": []any{
						map[string]any{"code": "max_precision", "type": "number", "value": 2.0},
					},
					"params": []any{
						map[string]any{"code": "content_id", "type": "text", "value": "c-1"},
					},
				},
			},
		},
	}
}

func TestValidator_CreateValid(t *testing.T) {
	v, sc := newTestValidator()

	p, errs := v.Validate(context.Background(), ModeCreate, "p1", "", validContent())
	if errs.Len() != 0 {
		t.Fatalf("expected no errors, got %v", errs.List())
	}
	if *p.Name != "Products" || *p.Code != "products" {
		t.Errorf("name/code = %q/%q", *p.Name, *p.Code)
	}

	fields := *p.EntryFields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].ID != "gen-1" || fields[0].Unit != nil {
		t.Errorf("field 0 = %+v", fields[0])
	}
	if fields[1].Unit == nil || *fields[1].Unit != "EUR" {
		t.Errorf("field 1 unit = %v", fields[1].Unit)
	}
	if fields[1].Validations[0].Value != 2.0 {
		t.Errorf("max_precision value = %v", fields[1].Validations[0].Value)
	}
	if len(fields[1].Params) != 1 || fields[1].Params[0].Value != "c-1" {
		t.Errorf("params = %+v", fields[1].Params)
	}

	if len(sc.queries) != 1 || sc.queries[0].Key != "code" || sc.queries[0].ExcludeID != "" {
		t.Errorf("unexpected uniqueness queries: %+v", sc.queries)
	}
}

func TestValidator_CreateRequiresNameAndCode(t *testing.T) {
	v, _ := newTestValidator()

	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", map[string]any{})
	if !hasError(errs, validate.Path{"name"}, validate.MsgRequired) {
		t.Errorf("expected name required, got %v", errs.List())
	}
	if !hasError(errs, validate.Path{"code"}, validate.MsgRequired) {
		t.Errorf("expected code required, got %v", errs.List())
	}
}

func TestValidator_CodeRules(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		taken   []string
		wantMsg string
	}{
		{"special characters", "my code!", nil, msgCodeFormat},
		{"too short", "ab", nil, "Value must be at least 3 characters"},
		{"taken", "products", []string{"products"}, msgCodeTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestValidator(tt.taken...)
			data := validContent()
			data["code"] = tt.code
			_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
			if !hasError(errs, validate.Path{"code"}, tt.wantMsg) {
				t.Errorf("expected %q on code, got %v", tt.wantMsg, errs.List())
			}
		})
	}
}

func TestValidator_EditOnlyPresentKeys(t *testing.T) {
	v, sc := newTestValidator()

	p, errs := v.Validate(context.Background(), ModeEdit, "p1", "c1", map[string]any{
		"translations": map[string]any{"enabled": true},
	})
	if errs.Len() != 0 {
		t.Fatalf("expected no errors, got %v", errs.List())
	}
	if p.Name != nil || p.Code != nil || p.EntryFields != nil {
		t.Error("absent keys must stay nil")
	}
	if p.Translations == nil || !p.Translations.Enabled {
		t.Error("translations not applied")
	}
	if len(sc.queries) != 0 {
		t.Error("code uniqueness must not run when code is absent")
	}

	c := Content{Name: "Old", Code: "old"}
	p.Apply(&c)
	if c.Name != "Old" || !c.Translations.Enabled {
		t.Errorf("Apply() = %+v", c)
	}
}

func TestValidator_EditExcludesOwnID(t *testing.T) {
	v, sc := newTestValidator()
	_, _ = v.Validate(context.Background(), ModeEdit, "p1", "c1", map[string]any{"code": "products"})
	if len(sc.queries) != 1 || sc.queries[0].ExcludeID != "c1" {
		t.Errorf("queries = %+v", sc.queries)
	}
}

func TestValidator_FieldErrors(t *testing.T) {
	v, _ := newTestValidator()

	data := validContent()
	data["entries"] = map[string]any{
		"fields": []any{
			map[string]any{"type": "bogus", "name": "A", "key": "dup"},
			map[string]any{"type": "number_integer", "name": "B", "key": "dup",
				"validations": []any{
					map[string]any{"code": "min", "type": "number", "value": -5.0},
					map[string]any{"code": "choices", "type": "list.text", "value": []any{"x", 3.0, "x"}},
				},
			},
			map[string]any{"type": "color", "name": "C", "key": "Bad Key"},
		},
	}

	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)

	want := []struct {
		path validate.Path
		msg  string
	}{
		{validate.Path{"entries", "fields", 0, "type"}, validate.MsgChoice},
		{validate.Path{"entries", "fields", 1, "validations", 0, "value"}, msgMinPositive},
		{validate.Path{"entries", "fields", 1, "validations", 1, "value"}, msgDuplicateChoices},
		{validate.Path{"entries", "fields", 2, "key"}, msgKeyFormat},
	}
	for _, w := range want {
		if !hasError(errs, w.path, w.msg) {
			t.Errorf("missing %q at %v; got %v", w.msg, w.path, errs.List())
		}
	}
}

func TestValidator_DuplicateKeys(t *testing.T) {
	v, _ := newTestValidator()
	fields := func() []any {
		return []any{
			map[string]any{"type": "color", "name": "A", "key": "dup"},
			map[string]any{"type": "color", "name": "B", "key": "dup"},
		}
	}

	data := validContent()
	data["sections"] = map[string]any{"enabled": true, "fields": fields()}
	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
	for _, i := range []int{0, 1} {
		if !hasError(errs, validate.Path{"sections", "fields", i, "key"}, msgKeyTaken) {
			t.Errorf("section key %d must be rejected; got %v", i, errs.List())
		}
	}

	data = validContent()
	data["entries"] = map[string]any{"fields": fields()}
	_, errs = v.Validate(context.Background(), ModeCreate, "p1", "", data)
	if errs.Len() != 0 {
		t.Errorf("entry keys are not checked for duplicates; got %v", errs.List())
	}
}

func TestValidator_NonObjectFieldKeepsIndex(t *testing.T) {
	v, _ := newTestValidator()
	data := validContent()
	data["entries"] = map[string]any{
		"fields": []any{
			nil,
			map[string]any{"type": "bogus", "name": "B", "key": "bee",
				"validations": []any{
					"min",
					map[string]any{"code": "min", "type": "number", "value": -1.0},
				},
				"params": []any{nil, map[string]any{"code": "nope", "type": "text", "value": "x"}},
			},
		},
	}

	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)

	want := []struct {
		path validate.Path
		msg  string
	}{
		{validate.Path{"entries", "fields", 0}, validate.MsgObject},
		{validate.Path{"entries", "fields", 1, "type"}, validate.MsgChoice},
		{validate.Path{"entries", "fields", 1, "validations", 0}, validate.MsgObject},
		{validate.Path{"entries", "fields", 1, "validations", 1, "value"}, msgMinPositive},
		{validate.Path{"entries", "fields", 1, "params", 0}, validate.MsgObject},
		{validate.Path{"entries", "fields", 1, "params", 1, "code"}, validate.MsgChoice},
	}
	for _, w := range want {
		if !hasError(errs, w.path, w.msg) {
			t.Errorf("missing %q at %v; got %v", w.msg, w.path, errs.List())
		}
	}
}

func TestValidator_TooManyFields(t *testing.T) {
	v, _ := newTestValidator()

	fields := make([]any, 11)
	for i := range fields {
		fields[i] = map[string]any{"type": "color", "name": "F", "key": fmt.Sprintf("key_%d", i)}
	}
	data := validContent()
	data["entries"] = map[string]any{"fields": fields}

	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
	if !hasError(errs, validate.Path{"entries", "fields"}, "Value must contain at most 10 items") {
		t.Errorf("expected field count error, got %v", errs.List())
	}
}

func TestValidator_Units(t *testing.T) {
	field := map[string]any{"type": "weight", "name": "W", "key": "weight", "unit": ""}

	v, _ := newTestValidator()
	data := map[string]any{"entries": map[string]any{"fields": []any{field}}}

	_, errs := v.Validate(context.Background(), ModeEdit, "p1", "c1", data)
	if !hasError(errs, validate.Path{"entries", "fields", 0, "unit"}, validate.MsgRequired) {
		t.Errorf("edit must require unit when present, got %v", errs.List())
	}

	data = validContent()
	data["entries"] = map[string]any{"fields": []any{field}}
	p, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
	if errs.Len() != 0 {
		t.Fatalf("create must accept empty unit, got %v", errs.List())
	}
	if (*p.EntryFields)[0].Unit != nil {
		t.Error("empty unit must not be stored")
	}
}

func TestValidator_SectionsIgnoreParams(t *testing.T) {
	v, _ := newTestValidator()
	data := validContent()
	data["sections"] = map[string]any{
		"enabled": "true",
		"fields": []any{
			map[string]any{"type": "single_line_text", "name": "Code", "key": "code",
				"params": []any{map[string]any{"code": "content_id", "type": "text", "value": "x"}}},
		},
	}

	p, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
	if errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs.List())
	}
	if !*p.Sections.Enabled {
		t.Error("sections.enabled not coerced")
	}
	if (*p.Sections.Fields)[0].Params != nil {
		t.Error("section fields must not carry params")
	}
}

func TestValidator_Notifications(t *testing.T) {
	v, _ := newTestValidator()
	data := validContent()
	data["notifications"] = map[string]any{
		"new": map[string]any{"alert": map[string]any{"enabled": true, "message": ""}},
	}

	_, errs := v.Validate(context.Background(), ModeCreate, "p1", "", data)
	if !hasError(errs, validate.Path{"notifications", "new", "alert", "message"}, validate.MsgRequired) {
		t.Errorf("expected alert message required, got %v", errs.List())
	}
}
