package translations

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// ErrMissingSubject is returned by Create without a subject id.
var ErrMissingSubject = errors.New("projectId & contentId & userId & subjectId required")

// Store is the persistence used by the Service. It is satisfied by
// *Repository.
type Store interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]model.Translation, error)
	Get(ctx context.Context, scope model.Scope, id string) (*model.Translation, error)
	Insert(ctx context.Context, t *model.Translation) (*model.Translation, error)
	Update(ctx context.Context, t *model.Translation) (*model.Translation, error)
}

// ContentReader reads a Content.
type ContentReader interface {
	Get(ctx context.Context, tenant model.Tenant, id string) (*schema.Content, error)
}

// Params are the Service dependencies. Changes is optional.
type Params struct {
	Store    Store         `validate:"required"`
	Contents ContentReader `validate:"required"`
	Changes  *audit.Service
}

// Service implements translation reads and writes.
type Service struct {
	store    Store
	contents ContentReader
	changes  *audit.Service
	newID    func() string
}

// NewService creates a Service.
func NewService(p *Params) (*Service, error) {
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("validating translation service params: %w", err)
	}
	return &Service{
		store:    p.Store,
		contents: p.Contents,
		changes:  p.Changes,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}, nil
}

// List returns a page of translations matching f.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]model.Translation, error) {
	if err := f.Scope.Validate(); err != nil {
		return nil, err
	}
	out, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing translations: %w", err)
	}
	if out == nil {
		out = []model.Translation{}
	}
	return out, nil
}

// Get returns one translation. Its Content must still exist.
func (s *Service) Get(ctx context.Context, scope model.Scope, id string) (*model.Translation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.contents.Get(ctx, scope.Tenant(), scope.ContentID); err != nil {
		return nil, err
	}
	return t, nil
}

// Create validates data and stores a translation of subjectID.
func (s *Service) Create(ctx context.Context, scope model.Scope, subjectID string, data map[string]any) (*model.Translation, validate.Errors, error) {
	if scope.Validate() != nil || subjectID == "" {
		return nil, validate.Errors{}, ErrMissingSubject
	}
	if _, err := s.contents.Get(ctx, scope.Tenant(), scope.ContentID); err != nil {
		return nil, validate.Errors{}, err
	}

	t := &model.Translation{
		ID:        s.newID(),
		UserID:    scope.UserID,
		ProjectID: scope.ProjectID,
		ContentID: scope.ContentID,
		SubjectID: subjectID,
	}
	if errs := applyInput(t, data, true); errs.Len() > 0 {
		return nil, errs, nil
	}

	stored, err := s.store.Insert(ctx, t)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("creating translation: %w", err)
	}

	s.logChange(ctx, audit.ActionTranslationCreate, stored)
	return stored, validate.Errors{}, nil
}

// Update validates the keys present in data and replaces them.
func (s *Service) Update(ctx context.Context, scope model.Scope, id string, data map[string]any) (*model.Translation, validate.Errors, error) {
	if err := scope.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}
	t, err := s.store.Get(ctx, scope, id)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	if errs := applyInput(t, data, false); errs.Len() > 0 {
		return nil, errs, nil
	}

	stored, err := s.store.Update(ctx, t)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("updating translation %s: %w", id, err)
	}

	s.logChange(ctx, audit.ActionTranslationUpdate, stored)
	return stored, validate.Errors{}, nil
}

var subjects = []string{string(model.SubjectEntry), string(model.SubjectFile)}

// applyInput validates data onto t. On create every member is validated;
// on edit only the members present in data.
func applyInput(t *model.Translation, data map[string]any, create bool) validate.Errors {
	var errs validate.Errors
	required := validate.Options{Required: validate.Is(true)}

	if raw, ok := data["subject"]; ok || create {
		o := required
		o.Choices = validate.Is(subjects)
		e, v := validate.String(raw, o)
		errs.AddFirst(validate.Path{"subject"}, e)
		if v != nil {
			t.Subject = model.TranslationSubject(*v)
		}
	}
	if raw, ok := data["subjectId"]; ok && !create {
		e, v := validate.String(raw, required)
		errs.AddFirst(validate.Path{"subjectId"}, e)
		if v != nil {
			t.SubjectID = *v
		}
	}
	if raw, ok := data["key"]; ok || create {
		e, v := validate.String(raw, required)
		errs.AddFirst(validate.Path{"key"}, e)
		if v != nil {
			t.Key = *v
		}
	}
	if raw, ok := data["lang"]; ok || create {
		e, v := validate.String(raw, required)
		errs.AddFirst(validate.Path{"lang"}, e)
		if v != nil {
			t.Lang = *v
		}
	}
	if raw, ok := data["value"]; ok || create {
		value, e := validateValue(raw)
		errs.Merge(e)
		t.Value = value
	}
	return errs
}

// validateValue checks that every member of a translation value is a
// string or a list of strings. Errors are reported at ["value", k] and
// ["value", k, i].
func validateValue(raw any) (map[string]any, validate.Errors) {
	var errs validate.Errors
	out := map[string]any{}
	path := validate.Path{"value"}

	if raw == nil {
		return out, errs
	}
	m, ok := raw.(map[string]any)
	if !ok {
		errs.Add(path, validate.MsgObject)
		return out, errs
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, isList := m[k].([]any); isList {
			res := validate.Array(m[k], validate.ArrayOptions{Kind: validate.KindString})
			errs.AddFirst(path.With(k), res.Errors)
			errs.AddItems(path.With(k), res.ItemErrors)
			if items := res.Compact(); items != nil {
				out[k] = items
			}
			continue
		}
		e, s := validate.String(m[k], validate.Options{})
		errs.AddFirst(path.With(k), e)
		if s != nil {
			out[k] = *s
		}
	}
	return out, errs
}

func (s *Service) logChange(ctx context.Context, action string, t *model.Translation) {
	if s.changes == nil {
		return
	}
	s.changes.Log(ctx, audit.Event{
		Action:    action,
		UserID:    t.UserID,
		ProjectID: t.ProjectID,
		Subject:   "translation",
		SubjectID: t.ID,
		Payload: map[string]any{
			"contentId": t.ContentID,
			"subject":   string(t.Subject),
			"subjectId": t.SubjectID,
			"lang":      t.Lang,
		},
	})
}
