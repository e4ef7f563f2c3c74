package contents

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// Store is the persistence used by the Service. It is satisfied by
// *Repository.
type Store interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]Listed, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Get(ctx context.Context, tenant model.Tenant, id string) (*schema.Content, error)
	Insert(ctx context.Context, c *schema.Content) (*schema.Content, error)
	Update(ctx context.Context, c *schema.Content) (*schema.Content, error)
}

// Params are the Service dependencies. Changes is optional; without it no
// change events are recorded.
type Params struct {
	Store     Store             `validate:"required"`
	Validator *schema.Validator `validate:"required"`
	Changes   *audit.Service
}

// Service implements Content authoring and reads.
type Service struct {
	store     Store
	validator *schema.Validator
	changes   *audit.Service
	newID     func() string
}

// NewService creates a Service.
func NewService(p *Params) (*Service, error) {
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("validating content service params: %w", err)
	}
	return &Service{
		store:     p.Store,
		validator: p.Validator,
		changes:   p.Changes,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}, nil
}

// List returns a page of the tenant's contents with their entry counts.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]Listed, error) {
	if err := f.Tenant.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing contents: %w", err)
	}
	if items == nil {
		items = []Listed{}
	}
	return items, nil
}

// Count returns the number of the tenant's contents matching f.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	if err := f.Tenant.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("counting contents: %w", err)
	}
	return n, nil
}

// Get returns one Content. The entry, section and translation services read
// the current schema through it on every operation.
func (s *Service) Get(ctx context.Context, tenant model.Tenant, id string) (*schema.Content, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, tenant, id)
}

// Create validates data as a new Content definition and stores it. User
// errors are returned with a nil Content.
func (s *Service) Create(ctx context.Context, tenant model.Tenant, data map[string]any) (*schema.Content, validate.Errors, error) {
	if err := tenant.Validate(); err != nil {
		return nil, validate.Errors{}, err
	}

	patch, errs := s.validator.Validate(ctx, schema.ModeCreate, tenant.ProjectID, "", data)
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	c := &schema.Content{
		ID:        s.newID(),
		UserID:    tenant.UserID,
		ProjectID: tenant.ProjectID,
	}
	patch.Apply(c)
	normalize(c)

	stored, err := s.store.Insert(ctx, c)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("creating content: %w", err)
	}

	s.logChange(ctx, audit.ActionContentCreate, tenant, stored)
	return stored, validate.Errors{}, nil
}

// Update validates the keys present in data and replaces them on the stored
// Content. Absent keys keep their stored value.
func (s *Service) Update(ctx context.Context, tenant model.Tenant, id string, data map[string]any) (*schema.Content, validate.Errors, error) {
	existing, err := s.Get(ctx, tenant, id)
	if err != nil {
		return nil, validate.Errors{}, err
	}

	patch, errs := s.validator.Validate(ctx, schema.ModeEdit, tenant.ProjectID, id, data)
	if errs.Len() > 0 {
		return nil, errs, nil
	}

	patch.Apply(existing)
	normalize(existing)

	stored, err := s.store.Update(ctx, existing)
	if err != nil {
		return nil, validate.Errors{}, fmt.Errorf("updating content %s: %w", id, err)
	}

	s.logChange(ctx, audit.ActionContentUpdate, tenant, stored)
	return stored, validate.Errors{}, nil
}

func (s *Service) logChange(ctx context.Context, action string, tenant model.Tenant, c *schema.Content) {
	if s.changes == nil {
		return
	}
	s.changes.Log(ctx, audit.Event{
		Action:    action,
		UserID:    tenant.UserID,
		ProjectID: tenant.ProjectID,
		Subject:   "content",
		SubjectID: c.ID,
		Payload:   map[string]any{"code": c.Code},
	})
}
