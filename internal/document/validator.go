// Package document validates entry and section documents against a
// Content's field schema and shapes stored documents for output.
package document

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"

	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/unique"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// User-facing messages.
const (
	MsgNotUnique = "Value must be unique"
	MsgInteger   = "Value must be an integer"
	MsgURLScheme = `Value cannot have an empty scheme (protocol), must include one of the following URL schemes: ["http", "https", "mailto", "sms", "tel"].`
)

const (
	maxMoneyItems     = 3
	uniqueConcurrency = 8
)

var urlScheme = regexp.MustCompile(`(?i)^(http|https|mailto|sms|tel):`)

// UniqueChecker checks a value against the store. It is satisfied by
// *unique.Checker.
type UniqueChecker interface {
	Check(ctx context.Context, q unique.Query, value any) unique.Result
}

// Scope identifies where a document is written. ExcludeID is the id of the
// record being edited, empty on create.
type Scope struct {
	Subject   unique.Subject
	ProjectID string
	ContentID string
	ExcludeID string
}

// Validator validates documents against field schemas.
type Validator struct {
	unique UniqueChecker
}

// NewValidator creates a Validator.
func NewValidator(u UniqueChecker) *Validator {
	return &Validator{unique: u}
}

// fieldResult is the outcome of one field. uniqueValue is set when the
// value must be checked against the store.
type fieldResult struct {
	value       any
	errs        validate.Errors
	uniqueValue any
	conflict    bool
}

// Validate checks doc against fields and returns the coerced document. Keys
// whose value is absent are left out. User errors are returned in field
// order; the error return is reserved for schemas that fail to compile.
func (v *Validator) Validate(ctx context.Context, scope Scope, fields []schema.Field, doc model.Doc) (model.Doc, validate.Errors, error) {
	if doc == nil {
		doc = model.Doc{}
	}

	results := make([]fieldResult, len(fields))
	for i, f := range fields {
		c, err := schema.Compile(f.Validations, f.Type)
		if err != nil {
			return nil, validate.Errors{}, fmt.Errorf("field %q: %w", f.Key, err)
		}
		res, err := validateField(f, c, doc)
		if err != nil {
			return nil, validate.Errors{}, err
		}
		results[i] = res
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uniqueConcurrency)
	for i := range results {
		if results[i].uniqueValue == nil {
			continue
		}
		i := i
		g.Go(func() error {
			q := unique.Query{
				Subject:   scope.Subject,
				ProjectID: scope.ProjectID,
				ContentID: scope.ContentID,
				ExcludeID: scope.ExcludeID,
				Key:       fields[i].Key,
			}
			results[i].conflict = v.unique.Check(gctx, q, results[i].uniqueValue) == unique.Conflict
			return nil
		})
	}
	_ = g.Wait()

	out := model.Doc{}
	var errs validate.Errors
	for i, f := range fields {
		r := results[i]
		if r.conflict {
			errs.Add(validate.Path{"doc", f.Key}, MsgNotUnique)
		}
		errs.Merge(r.errs)
		if r.value != nil {
			out[f.Key] = r.value
		}
	}
	return out, errs, nil
}

// validateField dispatches on the field type.
func validateField(f schema.Field, c schema.Constraints, doc model.Doc) (fieldResult, error) {
	path := validate.Path{"doc", f.Key}
	raw := doc[f.Key]
	var res fieldResult

	switch f.Type {
	case schema.FieldTypeSingleLineText, schema.FieldTypeMultiLineText, schema.FieldTypeRichText,
		schema.FieldTypeColor, schema.FieldTypeFileReference, schema.FieldTypeContentReference:
		e, s := validate.String(raw, c.Options)
		res.errs.AddFirst(path, e)
		res.setString(s, c.IsUnique())

	case schema.FieldTypeURL:
		e, s := validate.String(raw, c.Options)
		if s != nil && !urlScheme.MatchString(*s) {
			e = append(e, MsgURLScheme)
		}
		res.errs.AddFirst(path, e)
		res.setString(s, c.IsUnique())

	case schema.FieldTypeURLHandle:
		opts := c.Options
		opts.Required = validate.Is(true)
		e, s := validate.String(urlHandle(raw, c, doc), opts)
		res.errs.AddFirst(path, e)
		res.setString(s, true)

	case schema.FieldTypeNumberInteger, schema.FieldTypeNumberDecimal,
		schema.FieldTypeDimension, schema.FieldTypeVolume, schema.FieldTypeWeight:
		e, n := validate.Number(raw, c.Options)
		if n != nil && f.Type == schema.FieldTypeNumberInteger && *n != math.Trunc(*n) {
			e = append(e, MsgInteger)
		}
		res.errs.AddFirst(path, e)
		if n != nil {
			res.value = *n
			if c.IsUnique() {
				res.uniqueValue = *n
			}
		}

	case schema.FieldTypeBoolean:
		e, b := validate.Boolean(raw, c.Options)
		res.errs.AddFirst(path, e)
		if b != nil {
			res.value = *b
		}

	case schema.FieldTypeDate:
		e, t := validate.Date(raw, c.Options)
		res.errs.AddFirst(path, e)
		if t != nil {
			s := t.Format(validate.DateLayout)
			res.setString(&s, c.IsUnique())
		}

	case schema.FieldTypeDateTime:
		e, t := validate.DateTime(raw, c.Options)
		res.errs.AddFirst(path, e)
		if t != nil {
			s := t.Format(validate.DateTimeLayout)
			res.setString(&s, c.IsUnique())
		}

	case schema.FieldTypeMoney:
		res.value = money(path, raw, c, &res.errs)

	case schema.FieldTypeListSingleLineText, schema.FieldTypeListColor,
		schema.FieldTypeListFileReference, schema.FieldTypeListContentReference,
		schema.FieldTypeListURL, schema.FieldTypeListNumberInteger, schema.FieldTypeListNumberDecimal,
		schema.FieldTypeListDimension, schema.FieldTypeListVolume, schema.FieldTypeListWeight,
		schema.FieldTypeListDate, schema.FieldTypeListDateTime:
		res.value = list(path, f.Type, raw, c, &res.errs)

	default:
		return fieldResult{}, fmt.Errorf("field %q: unsupported type %q", f.Key, f.Type)
	}
	return res, nil
}

func (r *fieldResult) setString(s *string, checkUnique bool) {
	if s == nil {
		return
	}
	r.value = *s
	if checkUnique {
		r.uniqueValue = *s
	}
}

// urlHandle returns the raw handle, or a slug of the referenced field's
// value when no handle is given. Explicit handles are slugified when the
// transliteration rule is on.
func urlHandle(raw any, c schema.Constraints, doc model.Doc) any {
	handle, _ := raw.(string)
	handle = strings.TrimSpace(handle)

	if handle == "" {
		if c.FieldReference == "" {
			return raw
		}
		ref := doc[c.FieldReference]
		if ref == nil {
			return raw
		}
		return slug.Make(fmt.Sprint(ref))
	}
	if c.Transliteration {
		return slug.Make(handle)
	}
	return raw
}

// money validates a list of up to three {amount, currencyCode} objects.
func money(path validate.Path, raw any, c schema.Constraints, errs *validate.Errors) any {
	res := validate.Array(raw, validate.ArrayOptions{
		Required: c.Required,
		Max:      validate.Is(float64(maxMoneyItems)),
	})
	errs.AddFirst(path, res.Errors)
	if res.Value == nil {
		return nil
	}

	out := make([]any, 0, len(res.Value))
	for k, item := range res.Value {
		m, ok := item.(map[string]any)
		if !ok {
			errs.Add(path.With(k), validate.MsgObject)
			continue
		}
		e, amount := validate.Number(m["amount"], validate.Options{Required: validate.Is(true)})
		errs.AddFirst(path.With(k, "amount"), e)
		e, code := validate.String(m["currencyCode"], validate.Options{Required: validate.Is(true)})
		errs.AddFirst(path.With(k, "currencyCode"), e)

		if amount != nil && code != nil {
			out = append(out, map[string]any{"amount": *amount, "currencyCode": *code})
		}
	}
	return out
}

// list validates a list.<T> field. Required applies to the list, the other
// constraints to each element; unique requires distinct elements.
func list(path validate.Path, t schema.FieldType, raw any, c schema.Constraints, errs *validate.Errors) any {
	opts := validate.ArrayOptions{
		Required: c.Required,
		Unique:   c.Unique,
		Kind:     elementKind(t.Elem()),
		Item:     c.WithoutRequired(),
	}
	opts.Item.Unique = nil

	res := validate.Array(raw, opts)
	errs.AddFirst(path, res.Errors)
	errs.AddItems(path, res.ItemErrors)

	if res.Value == nil {
		return nil
	}

	// Element checks the array validator has no notion of.
	if t == schema.FieldTypeListURL || t == schema.FieldTypeListNumberInteger {
		items, _ := raw.([]any)
		for i, item := range items {
			if res.ItemErrors != nil && res.ItemErrors[i] != "" {
				continue
			}
			switch t {
			case schema.FieldTypeListURL:
				if _, s := validate.String(item, validate.Options{}); s != nil && !urlScheme.MatchString(*s) {
					errs.Add(path.With(i), MsgURLScheme)
				}
			case schema.FieldTypeListNumberInteger:
				if _, n := validate.Number(item, validate.Options{}); n != nil && *n != math.Trunc(*n) {
					errs.Add(path.With(i), MsgInteger)
				}
			}
		}
	}
	return res.Value
}

func elementKind(t schema.FieldType) validate.Kind {
	switch t {
	case schema.FieldTypeNumberInteger, schema.FieldTypeNumberDecimal,
		schema.FieldTypeDimension, schema.FieldTypeVolume, schema.FieldTypeWeight:
		return validate.KindNumber
	case schema.FieldTypeDate:
		return validate.KindDate
	case schema.FieldTypeDateTime:
		return validate.KindDateTime
	default:
		return validate.KindString
	}
}
