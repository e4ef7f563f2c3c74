package sections

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/document"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/unique"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// DefaultLimit is the page size of section listings.
const DefaultLimit = 50

// Store is the persistence used by the Service. It is satisfied by
// *Repository.
type Store interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]model.Section, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Get(ctx context.Context, tenant model.Tenant, id string) (*model.Section, error)
	Insert(ctx context.Context, s *model.Section) (*model.Section, error)
	Update(ctx context.Context, s *model.Section) (*model.Section, error)
	Delete(ctx context.Context, tenant model.Tenant, id string) error
}

// ContentReader reads the current Content schema.
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

// Service implements section reads and writes.
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
		return nil, fmt.Errorf("validating section service params: %w", err)
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

// ListResult is a page of sections with the schema's field summaries and
// the parent section the page was listed under.
type ListResult struct {
	Sections []model.Section       `json:"sections"`
	Fields   []schema.FieldSummary `json:"fields"`
	Parent   *model.Section        `json:"parent"`
}

// List returns a page of sections shaped by the current schema.
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
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	if items == nil {
		items = []model.Section{}
	}

	fields := content.Sections.Fields
	if err := s.shape(ctx, f.Scope.Tenant(), fields, items); err != nil {
		return nil, err
	}

	return &ListResult{
		Sections: items,
		Fields:   schema.Summaries(fields),
		Parent:   s.parent(ctx, f, fields),
	}, nil
}

// parent returns the projected parent section of a listing. A failed
// lookup is logged and yields nil; it never fails the listing.
func (s *Service) parent(ctx context.Context, f Filter, fields []schema.Field) *model.Section {
	if f.ParentID == "" || f.Code != "" {
		return nil
	}
	p, err := s.store.Get(ctx, f.Scope.Tenant(), f.ParentID)
	if err != nil {
		slog.Warn("parent section lookup failed", "parent_id", f.ParentID, "error", err)
		return nil
	}
	p.Doc = document.Project(fields, p.Doc)
	return p
}

// Count returns the number of sections matching f.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	if err := f.Scope.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("counting sections: %w", err)
	}
	return n, nil
}

// Get returns one section shaped by its Content's current schema.
func (s *Service) Get(ctx context.Context, tenant model.Tenant, id string) (*model.Section, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	sec, err := s.store.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	content, err := s.contents.Get(ctx, tenant, sec.ContentID)
	if err != nil {
		return nil, err
	}

	items := []model.Section{*sec}
	if err := s.shape(ctx, tenant, content.Sections.Fields, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *Service) shape(ctx context.Context, tenant model.Tenant, fields []schema.Field, items []model.Section) error {
	docs := make([]model.Doc, len(items))
	for i := range items {
		items[i].Doc = document.Project(fields, items[i].Doc)
		docs[i] = items[i].Doc
	}
	if err := s.resolver.Resolve(ctx, tenant, fields, docs); err != nil {
		return fmt.Errorf("resolving section references: %w", err)
	}
	return nil
}

// Create validates data and stores a new section. data carries doc and
// parentId; without a parent the section is a root.
func (s *Service) Create(ctx context.Context, scope model.Scope, data map[string]any) (*model.Section, validate.Errors, error) {
	if err := scope.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}
	content, err := s.contents.Get(ctx, scope.Tenant(), scope.ContentID)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	in, errs := document.Input(data["doc"])
	doc, docErrs, err := s.validator.Validate(ctx, docScope(scope, ""), content.Sections.Fields, in)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("validating section: %w", err)
	}
	errs.Merge(docErrs)

	parentID, parentErrs := parseParentID(data["parentId"])
	errs.Merge(parentErrs)
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	stored, err := s.store.Insert(ctx, &model.Section{
		ID:        s.newID(),
		ProjectID: scope.ProjectID,
		ContentID: scope.ContentID,
		CreatedBy: scope.UserID,
		UpdatedBy: scope.UserID,
		ParentID:  parentID,
		Doc:       doc,
	})
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("creating section: %w", err)
	}

	s.logChange(ctx, audit.ActionSectionCreate, scope.UserID, stored)
	return stored, validate.Errors{}, nil
}

// Update validates the doc and parentId present in data and replaces them.
func (s *Service) Update(ctx context.Context, scope model.Scope, id string, data map[string]any) (*model.Section, validate.Errors, error) {
	if err := scope.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}
	sec, err := s.store.Get(ctx, scope.Tenant(), id)
	if err != nil {
		return nil, validate.Errors{}, err
	}
	if sec.ContentID != scope.ContentID {
		return nil, validate.Errors{}, ErrNotFound
	}
	content, err := s.contents.Get(ctx, scope.Tenant(), sec.ContentID)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	var errs validate.Errors
	if raw, ok := data["doc"]; ok {
		in, inErrs := document.Input(raw)
		errs.Merge(inErrs)
		doc, docErrs, err := s.validator.Validate(ctx, docScope(scope, id), content.Sections.Fields, in)
		if err != nil {
			return nil, validate.Errors{}, fmt.Errorf("validating section: %w", err)
		}
		errs.Merge(docErrs)
		sec.Doc = doc
	}
	if raw, ok := data["parentId"]; ok {
		parentID, parentErrs := parseParentID(raw)
		errs.Merge(parentErrs)
		sec.ParentID = parentID
	}
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	sec.UpdatedBy = scope.UserID
	stored, err := s.store.Update(ctx, sec)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("updating section %s: %w", id, err)
	}

	s.logChange(ctx, audit.ActionSectionUpdate, scope.UserID, stored)
	return stored, validate.Errors{}, nil
}

// Delete removes a section.
func (s *Service) Delete(ctx context.Context, tenant model.Tenant, id string) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, tenant, id); err != nil {
		return err
	}

	s.logChange(ctx, audit.ActionSectionDelete, tenant.UserID, &model.Section{ID: id, ProjectID: tenant.ProjectID})
	return nil
}

func docScope(scope model.Scope, excludeID string) document.Scope {
	return document.Scope{
		Subject:   unique.SubjectSection,
		ProjectID: scope.ProjectID,
		ContentID: scope.ContentID,
		ExcludeID: excludeID,
	}
}

// parseParentID validates parentId as a string. Absent means a root.
func parseParentID(raw any) (*string, validate.Errors) {
	var errs validate.Errors
	e, id := validate.String(raw, validate.Options{})
	errs.AddFirst(validate.Path{"parentId"}, e)
	return id, errs
}

func (s *Service) logChange(ctx context.Context, action, userID string, sec *model.Section) {
	if s.changes == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		UserID:    userID,
		ProjectID: sec.ProjectID,
		Subject:   "section",
		SubjectID: sec.ID,
	}
	if sec.ContentID != "" {
		event.Payload = map[string]any{"contentId": sec.ContentID}
	}
	s.changes.Log(ctx, event)
}
