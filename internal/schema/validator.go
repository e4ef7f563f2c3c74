package schema

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-content/internal/unique"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// slugPattern matches valid Content codes and field keys.
var slugPattern = regexp.MustCompile(`^[a-z0-9\-_]+$`)

const (
	msgCodeFormat = "Code can’t include spaces or special characters (i.e. $ # !)"
	msgKeyFormat  = "Key can’t include spaces or special characters (i.e. $ # !)"
	msgCodeTaken  = "Code must be unique"
	msgKeyTaken   = "Value must be unique"

	maxFields = 10
)

// UniqueChecker checks a value against the store. It is satisfied by
// *unique.Checker.
type UniqueChecker interface {
	Check(ctx context.Context, q unique.Query, value any) unique.Result
}

// Mode selects create or edit semantics.
type Mode int

const (
	// ModeCreate requires name and code and treats field units as optional.
	ModeCreate Mode = iota
	// ModeEdit validates only the keys present in the input and requires a
	// unit on fields that carry the unit key.
	ModeEdit
)

// Patch is the validated part of a Content input. Nil members were absent
// from the input and must be left untouched.
type Patch struct {
	Name          *string
	Code          *string
	EntryFields   *[]Field
	Sections      SectionsPatch
	Notifications *Notifications
	Translations  *TranslationSettings
}

// SectionsPatch is the validated part of the sections settings.
type SectionsPatch struct {
	Enabled *bool
	Fields  *[]Field
}

// Apply copies the set members of p onto c.
func (p Patch) Apply(c *Content) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Code != nil {
		c.Code = *p.Code
	}
	if p.EntryFields != nil {
		c.Entries.Fields = *p.EntryFields
	}
	if p.Sections.Enabled != nil {
		c.Sections.Enabled = *p.Sections.Enabled
	}
	if p.Sections.Fields != nil {
		c.Sections.Fields = *p.Sections.Fields
	}
	if p.Notifications != nil {
		c.Notifications = *p.Notifications
	}
	if p.Translations != nil {
		c.Translations = *p.Translations
	}
}

// Validator validates user-authored Content definitions.
type Validator struct {
	unique UniqueChecker
	newID  func() string
}

// NewValidator creates a Validator. Fields without an id get a UUIDv7.
func NewValidator(u UniqueChecker) *Validator {
	return &Validator{
		unique: u,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// Validate checks a Content input and returns the validated patch together
// with every user error found. contentID is empty on create and excluded
// from the code uniqueness check on edit.
func (v *Validator) Validate(ctx context.Context, mode Mode, projectID, contentID string, data map[string]any) (Patch, validate.Errors) {
	var p Patch
	var errs validate.Errors

	if raw, ok := present(data, "name"); ok || mode == ModeCreate {
		e, name := validate.String(raw, validate.Options{
			Required: validate.Is(true),
			Min:      validate.Is(3.0),
			Max:      validate.Is(255.0),
		})
		errs.AddFirst(validate.Path{"name"}, e)
		p.Name = name
	}

	if raw, ok := present(data, "code"); ok || mode == ModeCreate {
		e, code := validate.String(raw, validate.Options{
			Required: validate.Is(true),
			Min:      validate.Is(3.0),
			Max:      validate.Is(255.0),
			Regex:    validate.With(slugPattern, msgCodeFormat),
		})
		errs.AddFirst(validate.Path{"code"}, e)
		if code != nil {
			q := unique.Query{
				Subject:   unique.SubjectContent,
				ProjectID: projectID,
				ExcludeID: contentID,
				Key:       "code",
			}
			if v.unique.Check(ctx, q, *code) == unique.Conflict {
				errs.Add(validate.Path{"code"}, msgCodeTaken)
			}
		}
		p.Code = code
	}

	if raw, ok := present(data, "entries"); ok {
		entries, isMap := raw.(map[string]any)
		if !isMap {
			errs.Add(validate.Path{"entries"}, validate.MsgObject)
		} else if rawFields, ok := present(entries, "fields"); ok {
			fields := v.fields(validate.Path{"entries", "fields"}, rawFields, true, mode, &errs)
			p.EntryFields = &fields
		}
	}

	if raw, ok := present(data, "sections"); ok {
		sections, isMap := raw.(map[string]any)
		if !isMap {
			errs.Add(validate.Path{"sections"}, validate.MsgObject)
		} else {
			if rawEnabled, ok := present(sections, "enabled"); ok {
				e, enabled := validate.Boolean(rawEnabled, validate.Options{})
				errs.AddFirst(validate.Path{"sections", "enabled"}, e)
				p.Sections.Enabled = enabled
			}
			if rawFields, ok := present(sections, "fields"); ok {
				fields := v.fields(validate.Path{"sections", "fields"}, rawFields, false, mode, &errs)
				p.Sections.Fields = &fields
			}
		}
	}

	if raw, ok := present(data, "notifications"); ok {
		alert := nested(raw, "new", "alert")
		e, enabled := validate.Boolean(alert["enabled"], validate.Options{})
		errs.AddFirst(validate.Path{"notifications", "new", "alert", "enabled"}, e)

		on := enabled != nil && *enabled
		e, msg := validate.String(alert["message"], validate.Options{Required: validate.Is(on)})
		errs.AddFirst(validate.Path{"notifications", "new", "alert", "message"}, e)

		n := Notifications{New: NewNotifications{Alert: Alert{Enabled: on}}}
		if msg != nil {
			n.New.Alert.Message = *msg
		}
		p.Notifications = &n
	}

	if raw, ok := present(data, "translations"); ok {
		e, enabled := validate.Boolean(nested(raw)["enabled"], validate.Options{})
		errs.AddFirst(validate.Path{"translations", "enabled"}, e)
		p.Translations = &TranslationSettings{Enabled: enabled != nil && *enabled}
	}

	return p, errs
}

// fields validates an entry or section field array. Params are accepted on
// entry fields only; keys must be distinct within the array on section
// fields only.
func (v *Validator) fields(path validate.Path, raw any, entry bool, mode Mode, errs *validate.Errors) []Field {
	res := validate.Array(raw, validate.ArrayOptions{
		Required: validate.Is(true),
		Max:      validate.Is(float64(maxFields)),
	})
	errs.AddFirst(path, res.Errors)

	keys := make(map[string]int, len(res.Value))
	for _, item := range res.Value {
		if entry {
			break
		}
		if m, ok := item.(map[string]any); ok {
			if k, ok := m["key"].(string); ok {
				keys[strings.TrimSpace(k)]++
			}
		}
	}

	out := make([]Field, 0, len(res.Value))
	for i, item := range res.Value {
		fp := path.With(i)
		m, ok := item.(map[string]any)
		if !ok {
			errs.Add(fp, validate.MsgObject)
			continue
		}
		out = append(out, v.field(fp, m, keys, entry, mode, errs))
	}
	return out
}

func (v *Validator) field(path validate.Path, m map[string]any, keys map[string]int, entry bool, mode Mode, errs *validate.Errors) Field {
	var f Field

	e, id := validate.String(m["id"], validate.Options{})
	errs.AddFirst(path.With("id"), e)
	if id != nil {
		f.ID = *id
	} else {
		f.ID = v.newID()
	}

	e, typ := validate.String(m["type"], validate.Options{
		Required: validate.Is(true),
		Choices:  validate.Is(fieldTypeChoices()),
	})
	errs.AddFirst(path.With("type"), e)
	if typ != nil {
		f.Type = FieldType(*typ)
	}

	e, name := validate.String(m["name"], validate.Options{
		Required: validate.Is(true),
		Max:      validate.Is(255.0),
	})
	errs.AddFirst(path.With("name"), e)
	if name != nil {
		f.Name = *name
	}

	e, key := validate.String(m["key"], validate.Options{
		Required: validate.Is(true),
		Min:      validate.Is(3.0),
		Max:      validate.Is(64.0),
		Regex:    validate.With(slugPattern, msgKeyFormat),
	})
	errs.AddFirst(path.With("key"), e)
	if key != nil {
		f.Key = *key
		if keys[*key] > 1 {
			errs.Add(path.With("key"), msgKeyTaken)
		}
	}

	e, desc := validate.String(m["description"], validate.Options{Max: validate.Is(100.0)})
	errs.AddFirst(path.With("description"), e)
	if desc != nil {
		f.Description = *desc
	}

	if rawUnit, ok := m["unit"]; ok {
		e, unit := validate.String(rawUnit, validate.Options{
			Required: validate.Is(mode == ModeEdit),
			Max:      validate.Is(255.0),
		})
		errs.AddFirst(path.With("unit"), e)
		f.Unit = unit
	}

	f.Validations = rules(path.With("validations"), m["validations"], f.Type, errs)

	if entry {
		if rawParams, ok := present(m, "params"); ok {
			f.Params = params(path.With("params"), rawParams, errs)
		}
	}

	e, system := validate.Boolean(m["system"], validate.Options{})
	errs.AddFirst(path.With("system"), e)
	f.System = system != nil && *system

	return f
}

func rules(path validate.Path, raw any, t FieldType, errs *validate.Errors) []Rule {
	res := validate.Array(raw, validate.ArrayOptions{})
	errs.AddFirst(path, res.Errors)

	out := make([]Rule, 0, len(res.Value))
	for j, item := range res.Value {
		rp := path.With(j)
		m, ok := item.(map[string]any)
		if !ok {
			errs.Add(rp, validate.MsgObject)
			continue
		}

		e, code := validate.String(m["code"], validate.Options{
			Required: validate.Is(true),
			Choices:  validate.Is(ruleCodes),
		})
		errs.AddFirst(rp.With("code"), e)

		e, typ := validate.String(m["type"], validate.Options{
			Required: validate.Is(true),
			Choices:  validate.Is(valueTypes),
		})
		errs.AddFirst(rp.With("type"), e)

		var r Rule
		if code != nil {
			r.Code = RuleCode(*code)
		}
		if typ != nil {
			r.Type = ValueType(*typ)
		}
		if r.Code.Valid() {
			rv := CheckRuleValue(Rule{Code: r.Code, Type: r.Type, Value: m["value"]}, t)
			errs.AddFirst(rp.With("value"), rv.Errors)
			errs.AddItems(rp.With("value"), rv.ItemErrors)
			r.Value = rv.Value
		}
		out = append(out, r)
	}
	return out
}

func params(path validate.Path, raw any, errs *validate.Errors) []Param {
	res := validate.Array(raw, validate.ArrayOptions{})
	errs.AddFirst(path, res.Errors)

	out := make([]Param, 0, len(res.Value))
	for j, item := range res.Value {
		pp := path.With(j)
		m, ok := item.(map[string]any)
		if !ok {
			errs.Add(pp, validate.MsgObject)
			continue
		}

		e, code := validate.String(m["code"], validate.Options{
			Required: validate.Is(true),
			Choices:  validate.Is(paramCodes),
		})
		errs.AddFirst(pp.With("code"), e)

		e, typ := validate.String(m["type"], validate.Options{
			Required: validate.Is(true),
			Choices:  validate.Is(paramTypes),
		})
		errs.AddFirst(pp.With("type"), e)

		var p Param
		if code != nil {
			p.Code = ParamCode(*code)
		}
		if typ != nil {
			p.Type = ValueType(*typ)
		}

		if p.Type == ValueTypeListText {
			res := validate.Array(m["value"], validate.ArrayOptions{Kind: validate.KindString})
			errs.AddFirst(pp.With("value"), res.Errors)
			errs.AddItems(pp.With("value"), res.ItemErrors)
			p.Value = res.Compact()
		} else {
			e, s := validate.String(m["value"], validate.Options{})
			errs.AddFirst(pp.With("value"), e)
			if s != nil {
				p.Value = *s
			}
		}
		out = append(out, p)
	}
	return out
}

// present returns m[key] and whether it is set to a non-null value.
func present(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok && v != nil
}

// nested walks objects along keys and returns the innermost object, or an
// empty one when any step is missing or not an object.
func nested(v any, keys ...string) map[string]any {
	m, _ := v.(map[string]any)
	for _, k := range keys {
		m, _ = m[k].(map[string]any)
	}
	if m == nil {
		return map[string]any{}
	}
	return m
}
