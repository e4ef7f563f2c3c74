// Package entries implements the entry API: schema-validated documents
// written against a Content's entry fields.
package entries

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

// ErrNotFound is returned when an entry does not exist in the tenant scope.
var ErrNotFound = errors.New("entry not found")

// Filter selects the entries of one Content.
type Filter struct {
	Scope     model.Scope
	SectionID string
	Params    query.Params
}

const entryColumns = `id, project_id, content_id, created_by, updated_by, section_ids, doc, created_at, updated_at`

// Repository provides database operations for the entries table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// buildWhere scopes entries to the creator, project and Content, then adds
// the section and list parameter filters.
func buildWhere(f Filter) *query.Where {
	var w query.Where
	w.Eq("created_by", f.Scope.UserID)
	w.Eq("project_id", f.Scope.ProjectID)
	w.Eq("content_id", f.Scope.ContentID)
	if f.SectionID != "" {
		w.Contains("section_ids", f.SectionID)
	}
	w.Apply(f.Params)
	return &w
}

func buildListQuery(f Filter, limit, offset int) (string, []any) {
	w := buildWhere(f)
	where := w.SQL()
	page := w.Page(limit, offset)
	sql := fmt.Sprintf("SELECT %s FROM entries WHERE %s ORDER BY id ASC %s", entryColumns, where, page)
	return sql, w.Args()
}

// List returns a page of entries ordered by id.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]model.Entry, error) {
	sql, args := buildListQuery(f, limit, offset)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching f.
func (r *Repository) Count(ctx context.Context, f Filter) (int64, error) {
	w := buildWhere(f)

	var n int64
	sql := "SELECT COUNT(*) FROM entries WHERE " + w.SQL()
	if err := r.db.Pool().QueryRow(ctx, sql, w.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Get returns the entry with id created by the tenant's user.
func (r *Repository) Get(ctx context.Context, tenant model.Tenant, id string) (*model.Entry, error) {
	sql := `SELECT ` + entryColumns + ` FROM entries
		WHERE id = $1 AND project_id = $2 AND created_by = $3`

	rows, err := r.db.Pool().Query(ctx, sql, id, tenant.ProjectID, tenant.UserID)
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return collectOne(rows)
}

// EntriesByIDs returns the tenant's entries among ids, in id order. It backs
// content reference resolution.
func (r *Repository) EntriesByIDs(ctx context.Context, tenant model.Tenant, ids []string) ([]model.Entry, error) {
	sql := `SELECT ` + entryColumns + ` FROM entries
		WHERE project_id = $1 AND created_by = $2 AND id = ANY($3)
		ORDER BY id ASC`

	rows, err := r.db.Pool().Query(ctx, sql, tenant.ProjectID, tenant.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("querying entries by id: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	return entries, nil
}

// Insert stores a new entry and returns the stored row.
func (r *Repository) Insert(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	doc, err := json.Marshal(e.Doc)
	if err != nil {
		return nil, fmt.Errorf("encoding entry doc: %w", err)
	}

	sql := `INSERT INTO entries (id, project_id, content_id, created_by, updated_by, section_ids, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + entryColumns

	rows, err := r.db.Pool().Query(ctx, sql,
		e.ID, e.ProjectID, e.ContentID, e.CreatedBy, e.UpdatedBy, sectionIDs(e.SectionIDs), doc)
	if err != nil {
		return nil, fmt.Errorf("inserting entry: %w", err)
	}
	return collectOne(rows)
}

// Update replaces the doc, sections and updater of an entry.
func (r *Repository) Update(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	doc, err := json.Marshal(e.Doc)
	if err != nil {
		return nil, fmt.Errorf("encoding entry doc: %w", err)
	}

	sql := `UPDATE entries
		SET updated_by = $3, section_ids = $4, doc = $5, updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING ` + entryColumns

	rows, err := r.db.Pool().Query(ctx, sql, e.ID, e.ProjectID, e.UpdatedBy, sectionIDs(e.SectionIDs), doc)
	if err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}
	return collectOne(rows)
}

// Delete removes the entry with id created by the tenant's user.
func (r *Repository) Delete(ctx context.Context, tenant model.Tenant, id string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM entries WHERE id = $1 AND project_id = $2 AND created_by = $3`,
		id, tenant.ProjectID, tenant.UserID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.CollectableRow) (model.Entry, error) {
	var e model.Entry
	err := row.Scan(&e.ID, &e.ProjectID, &e.ContentID, &e.CreatedBy, &e.UpdatedBy,
		&e.SectionIDs, &e.Doc, &e.CreatedAt, &e.UpdatedAt)
	if e.Doc == nil {
		e.Doc = model.Doc{}
	}
	return e, err
}

func collectOne(rows pgx.Rows) (*model.Entry, error) {
	e, err := pgx.CollectOneRow(rows, scanEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	return &e, nil
}

// sectionIDs keeps the column NOT NULL for entries without sections.
func sectionIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
