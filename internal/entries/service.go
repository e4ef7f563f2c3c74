package entries

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/document"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/server"
	"github.com/GyroZepelix/mithril-content/internal/unique"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// Store is the persistence used by the Service. It is satisfied by
// *Repository.
type Store interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]model.Entry, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Get(ctx context.Context, tenant model.Tenant, id string) (*model.Entry, error)
	Insert(ctx context.Context, e *model.Entry) (*model.Entry, error)
	Update(ctx context.Context, e *model.Entry) (*model.Entry, error)
	Delete(ctx context.Context, tenant model.Tenant, id string) error
}

// ContentReader reads the current Content schema. It is satisfied by
// *contents.Service.
type ContentReader interface {
	Get(ctx context.Context, tenant model.Tenant, id string) (*schema.Content, error)
}

// Params are the Service dependencies. Changes is optional.
type Params struct {
	Store     Store               `validate:"required"`
	Contents  ContentReader       `validate:"required"`
	Validator *document.Validator `validate:"required"`
	Resolver  *document.Resolver  `validate:"required"`
	Changes   *audit.Service
}

// Service implements entry reads and writes.
type Service struct {
	store     Store
	contents  ContentReader
	validator *document.Validator
	resolver  *document.Resolver
	changes   *audit.Service
	newID     func() string
}

// NewService creates a Service.
func NewService(p *Params) (*Service, error) {
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("validating entry service params: %w", err)
	}
	return &Service{
		store:     p.Store,
		contents:  p.Contents,
		validator: p.Validator,
		resolver:  p.Resolver,
		changes:   p.Changes,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}, nil
}

// ListResult is a page of entries shaped by the current schema, with the
// summaries of the schema's fields.
type ListResult struct {
	Entries []model.Entry         `json:"entries"`
	Fields  []schema.FieldSummary `json:"fields"`
}

// List returns a page of entries. Each doc holds exactly the schema's keys
// with references resolved.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) (*ListResult, error) {
	if err := f.Scope.Validate(); err != nil {
		return nil, err
	}
	content, err := s.contents.Get(ctx, f.Scope.Tenant(), f.Scope.ContentID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	if items == nil {
		items = []model.Entry{}
	}

	fields := content.Entries.Fields
	if err := s.shape(ctx, f.Scope.Tenant(), fields, items); err != nil {
		return nil, err
	}
	return &ListResult{Entries: items, Fields: schema.Summaries(fields)}, nil
}

// Count returns the number of entries matching f.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	if err := f.Scope.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Get returns one entry shaped by its Content's current schema.
func (s *Service) Get(ctx context.Context, tenant model.Tenant, id string) (*model.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	e, err := s.store.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	content, err := s.contents.Get(ctx, tenant, e.ContentID)
	if err != nil {
		return nil, err
	}

	items := []model.Entry{*e}
	if err := s.shape(ctx, tenant, content.Entries.Fields, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// shape projects every doc onto fields and resolves their references.
func (s *Service) shape(ctx context.Context, tenant model.Tenant, fields []schema.Field, items []model.Entry) error {
	docs := make([]model.Doc, len(items))
	for i := range items {
		items[i].Doc = document.Project(fields, items[i].Doc)
		docs[i] = items[i].Doc
	}
	if err := s.resolver.Resolve(ctx, tenant, fields, docs); err != nil {
		return fmt.Errorf("resolving entry references: %w", err)
	}
	return nil
}

// Create validates data and stores a new entry. data carries doc and
// sectionIds; a missing doc is validated as empty.
func (s *Service) Create(ctx context.Context, scope model.Scope, data map[string]any) (*model.Entry, validate.Errors, error) {
	if err := scope.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}
	content, err := s.contents.Get(ctx, scope.Tenant(), scope.ContentID)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	in, errs := document.Input(data["doc"])
	doc, docErrs, err := s.validator.Validate(ctx, docScope(scope, ""), content.Entries.Fields, in)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("validating entry: %w", err)
	}
	errs.Merge(docErrs)

	sectionIDs, idErrs := parseSectionIDs(data["sectionIds"])
	errs.Merge(idErrs)
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	stored, err := s.store.Insert(ctx, &model.Entry{
		ID:         s.newID(),
		ProjectID:  scope.ProjectID,
		ContentID:  scope.ContentID,
		CreatedBy:  scope.UserID,
		UpdatedBy:  scope.UserID,
		SectionIDs: sectionIDs,
		Doc:        doc,
	})
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("creating entry: %w", err)
	}

	s.logChange(ctx, audit.ActionEntryCreate, scope.UserID, stored)
	return stored, validate.Errors{}, nil
}

// Update validates the doc and sectionIds present in data and replaces
// them. The doc is validated against the entry's Content with the entry
// itself excluded from uniqueness checks.
func (s *Service) Update(ctx context.Context, scope model.Scope, id string, data map[string]any) (*model.Entry, validate.Errors, error) {
	if err := scope.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}
	e, err := s.store.Get(ctx, scope.Tenant(), id)
	if err != nil {
		return nil, validate.Errors{}, err
	}
	if e.ContentID != scope.ContentID {
		return nil, validate.Errors{}, ErrNotFound
	}
	content, err := s.contents.Get(ctx, scope.Tenant(), e.ContentID)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	var errs validate.Errors
	if raw, ok := data["doc"]; ok {
		in, inErrs := document.Input(raw)
		errs.Merge(inErrs)
		doc, docErrs, err := s.validator.Validate(ctx, docScope(scope, id), content.Entries.Fields, in)
		if err != nil {
			return nil, validate.Errors{}, fmt.Errorf("validating entry: %w", err)
		}
		errs.Merge(docErrs)
		e.Doc = doc
	}
	if raw, ok := data["sectionIds"]; ok {
		sectionIDs, idErrs := parseSectionIDs(raw)
		errs.Merge(idErrs)
		e.SectionIDs = sectionIDs
	}
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	e.UpdatedBy = scope.UserID
	stored, err := s.store.Update(ctx, e)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("updating entry %s: %w", id, err)
	}

	s.logChange(ctx, audit.ActionEntryUpdate, scope.UserID, stored)
	return stored, validate.Errors{}, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, tenant model.Tenant, id string) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, tenant, id); err != nil {
		return err
	}

	s.logChange(ctx, audit.ActionEntryDelete, tenant.UserID, &model.Entry{ID: id, ProjectID: tenant.ProjectID})
	return nil
}

func docScope(scope model.Scope, excludeID string) document.Scope {
	return document.Scope{
		Subject:   unique.SubjectEntry,
		ProjectID: scope.ProjectID,
		ContentID: scope.ContentID,
		ExcludeID: excludeID,
	}
}

// parseSectionIDs accepts an array of strings or a comma separated string.
// Errors are reported at ["sectionIds"] and ["sectionIds", i].
func parseSectionIDs(raw any) ([]string, validate.Errors) {
	if s, ok := raw.(string); ok {
		raw = server.SplitIDs(s)
	}

	var errs validate.Errors
	path := validate.Path{"sectionIds"}
	res := validate.Array(raw, validate.ArrayOptions{Kind: validate.KindString})
	errs.AddFirst(path, res.Errors)
	errs.AddItems(path, res.ItemErrors)

	items := res.Compact()
	ids := make([]string, 0, len(items))
	for _, v := range items {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, errs
}

func (s *Service) logChange(ctx context.Context, action, userID string, e *model.Entry) {
	if s.changes == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		UserID:    userID,
		ProjectID: e.ProjectID,
		Subject:   "entry",
		SubjectID: e.ID,
	}
	if e.ContentID != "" {
		event.Payload = map[string]any{"contentId": e.ContentID}
	}
	s.changes.Log(ctx, event)
}
