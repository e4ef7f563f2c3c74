// Package sections implements the section API: a tree of schema-validated
// documents that entries of the same Content are grouped under.
package sections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GyroZepelix/mithril-content/internal/database"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/query"
)

// ErrNotFound is returned when a section does not exist in the tenant scope.
var ErrNotFound = errors.New("section not found")

// Filter selects the sections of one Content. Code matches doc.code and
// lifts the parent filter; otherwise ParentID selects the children of a
// section, or the roots when empty.
type Filter struct {
	Scope    model.Scope
	ParentID string
	Code     string
	Params   query.Params
}

const sectionColumns = `id, project_id, content_id, parent_id, created_by, updated_by, doc, created_at, updated_at`

// Repository provides database operations for the sections table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func buildWhere(f Filter) *query.Where {
	var w query.Where
	w.Eq("created_by", f.Scope.UserID)
	w.Eq("project_id", f.Scope.ProjectID)
	w.Eq("content_id", f.Scope.ContentID)

	switch {
	case f.Code != "":
		w.DocEq("code", f.Code)
	case f.ParentID != "":
		w.Eq("parent_id", f.ParentID)
	default:
		w.IsNull("parent_id")
	}

	w.Apply(f.Params)
	return &w
}

func buildListQuery(f Filter, limit, offset int) (string, []any) {
	w := buildWhere(f)
	where := w.SQL()
	page := w.Page(limit, offset)
	sql := fmt.Sprintf("SELECT %s FROM sections WHERE %s ORDER BY id ASC %s", sectionColumns, where, page)
	return sql, w.Args()
}

// List returns a page of sections ordered by id.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]model.Section, error) {
	sql, args := buildListQuery(f, limit, offset)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	sections, err := pgx.CollectRows(rows, scanSection)
	if err != nil {
		return nil, fmt.Errorf("scanning sections: %w", err)
	}
	return sections, nil
}

// Count returns the number of sections matching f.
func (r *Repository) Count(ctx context.Context, f Filter) (int64, error) {
	w := buildWhere(f)

	var n int64
	sql := "SELECT COUNT(*) FROM sections WHERE " + w.SQL()
	if err := r.db.Pool().QueryRow(ctx, sql, w.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sections: %w", err)
	}
	return n, nil
}

// Get returns the section with id created by the tenant's user.
func (r *Repository) Get(ctx context.Context, tenant model.Tenant, id string) (*model.Section, error) {
	sql := `SELECT ` + sectionColumns + ` FROM sections
		WHERE id = $1 AND project_id = $2 AND created_by = $3`

	rows, err := r.db.Pool().Query(ctx, sql, id, tenant.ProjectID, tenant.UserID)
	if err != nil {
		return nil, fmt.Errorf("querying section: %w", err)
	}
	return collectOne(rows)
}

// Insert stores a new section and returns the stored row.
func (r *Repository) Insert(ctx context.Context, s *model.Section) (*model.Section, error) {
	doc, err := json.Marshal(s.Doc)
	if err != nil {
		return nil, fmt.Errorf("encoding section doc: %w", err)
	}

	sql := `INSERT INTO sections (id, project_id, content_id, parent_id, created_by, updated_by, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sectionColumns

	rows, err := r.db.Pool().Query(ctx, sql,
		s.ID, s.ProjectID, s.ContentID, s.ParentID, s.CreatedBy, s.UpdatedBy, doc)
	if err != nil {
		return nil, fmt.Errorf("inserting section: %w", err)
	}
	return collectOne(rows)
}

// Update replaces the doc, parent and updater of a section.
func (r *Repository) Update(ctx context.Context, s *model.Section) (*model.Section, error) {
	doc, err := json.Marshal(s.Doc)
	if err != nil {
		return nil, fmt.Errorf("encoding section doc: %w", err)
	}

	sql := `UPDATE sections
		SET updated_by = $3, parent_id = $4, doc = $5, updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING ` + sectionColumns

	rows, err := r.db.Pool().Query(ctx, sql, s.ID, s.ProjectID, s.UpdatedBy, s.ParentID, doc)
	if err != nil {
		return nil, fmt.Errorf("updating section: %w", err)
	}
	return collectOne(rows)
}

// Delete removes the section with id created by the tenant's user. Child
// sections and entries referencing it are left as they are.
func (r *Repository) Delete(ctx context.Context, tenant model.Tenant, id string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM sections WHERE id = $1 AND project_id = $2 AND created_by = $3`,
		id, tenant.ProjectID, tenant.UserID)
	if err != nil {
		return fmt.Errorf("deleting section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSection(row pgx.CollectableRow) (model.Section, error) {
	var s model.Section
	err := row.Scan(&s.ID, &s.ProjectID, &s.ContentID, &s.ParentID, &s.CreatedBy, &s.UpdatedBy,
		&s.Doc, &s.CreatedAt, &s.UpdatedAt)
	if s.Doc == nil {
		s.Doc = model.Doc{}
	}
	return s, err
}

func collectOne(rows pgx.Rows) (*model.Section, error) {
	s, err := pgx.CollectOneRow(rows, scanSection)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning section: %w", err)
	}
	return &s, nil
}
