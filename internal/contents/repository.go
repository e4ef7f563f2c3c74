// Package contents stores and serves Content definitions: the user-authored
// schemas that entries and sections of a project conform to.
package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/GyroZepelix/mithril-content/internal/database"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
)

// ErrNotFound is returned when a Content does not exist in the tenant scope.
var ErrNotFound = errors.New("content not found")

// Filter narrows a listing to one tenant and, optionally, one code.
type Filter struct {
	Tenant model.Tenant
	Code   string
}

// Listed is a Content with the number of entries written against it.
type Listed struct {
	schema.Content
	EntriesCount int64 `json:"entriesCount"`
}

// contentColumns is the column list shared by all content queries.
const contentColumns = `id, user_id, project_id, name, code, entries, sections,
	notifications, translations, created_at, updated_at`

// Repository provides database operations for the contents table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// List returns a page of contents ordered by id, each with its entry count.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Listed, error) {
	sql, args := buildListQuery(f, limit, offset)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contents: %w", err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Listed, error) {
		var cr contentRow
		var n int64
		if err := row.Scan(append(cr.dest(), &n)...); err != nil {
			return Listed{}, err
		}
		c, err := cr.content()
		if err != nil {
			return Listed{}, err
		}
		return Listed{Content: *c, EntriesCount: n}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning contents: %w", err)
	}
	return items, nil
}

// Count returns the number of contents matching f.
func (r *Repository) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := buildWhere(f, "")

	var n int64
	sql := "SELECT COUNT(*) FROM contents WHERE " + where
	if err := r.db.Pool().QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting contents: %w", err)
	}
	return n, nil
}

// Get returns the Content with id owned by tenant.
func (r *Repository) Get(ctx context.Context, tenant model.Tenant, id string) (*schema.Content, error) {
	sql := `SELECT ` + contentColumns + ` FROM contents
		WHERE id = $1 AND user_id = $2 AND project_id = $3`

	rows, err := r.db.Pool().Query(ctx, sql, id, tenant.UserID, tenant.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}
	return collectOne(rows)
}

// Insert stores a new Content and returns the stored row.
func (r *Repository) Insert(ctx context.Context, c *schema.Content) (*schema.Content, error) {
	args, err := writeArgs(c)
	if err != nil {
		return nil, err
	}

	sql := `INSERT INTO contents (id, user_id, project_id, name, code, entries, sections, notifications, translations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + contentColumns

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("inserting content: %w", err)
	}
	return collectOne(rows)
}

// Update replaces the mutable columns of c and returns the stored row.
func (r *Repository) Update(ctx context.Context, c *schema.Content) (*schema.Content, error) {
	args, err := writeArgs(c)
	if err != nil {
		return nil, err
	}

	sql := `UPDATE contents
		SET name = $4, code = $5, entries = $6, sections = $7, notifications = $8,
			translations = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND project_id = $3
		RETURNING ` + contentColumns

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("updating content: %w", err)
	}
	return collectOne(rows)
}

func collectOne(rows pgx.Rows) (*schema.Content, error) {
	c, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (*schema.Content, error) {
		var cr contentRow
		if err := row.Scan(cr.dest()...); err != nil {
			return nil, err
		}
		return cr.content()
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning content: %w", err)
	}
	return c, nil
}

// contentRow holds one scanned row. The settings columns are JSONB and are
// decoded after the scan.
type contentRow struct {
	c                                              schema.Content
	entries, sections, notifications, translations []byte
}

func (cr *contentRow) dest() []any {
	return []any{
		&cr.c.ID, &cr.c.UserID, &cr.c.ProjectID, &cr.c.Name, &cr.c.Code,
		&cr.entries, &cr.sections, &cr.notifications, &cr.translations,
		&cr.c.CreatedAt, &cr.c.UpdatedAt,
	}
}

func (cr *contentRow) content() (*schema.Content, error) {
	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"entries", cr.entries, &cr.c.Entries},
		{"sections", cr.sections, &cr.c.Sections},
		{"notifications", cr.notifications, &cr.c.Notifications},
		{"translations", cr.translations, &cr.c.Translations},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decoding content %s: %w", col.name, err)
		}
	}
	normalize(&cr.c)
	c := cr.c
	return &c, nil
}

// normalize replaces nil field arrays so they encode as [].
func normalize(c *schema.Content) {
	if c.Entries.Fields == nil {
		c.Entries.Fields = []schema.Field{}
	}
	if c.Sections.Fields == nil {
		c.Sections.Fields = []schema.Field{}
	}
}

// writeArgs returns the insert and update arguments of c in column order.
func writeArgs(c *schema.Content) ([]any, error) {
	args := []any{c.ID, c.UserID, c.ProjectID, c.Name, c.Code}
	for _, v := range []any{c.Entries, c.Sections, c.Notifications, c.Translations} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding content settings: %w", err)
		}
		args = append(args, b)
	}
	return args, nil
}

// buildWhere returns the tenant and code conditions. alias prefixes the
// column names when the query joins other tables.
func buildWhere(f Filter, alias string) (string, []any) {
	whereParts := []string{
		fmt.Sprintf("%suser_id = $1", alias),
		fmt.Sprintf("%sproject_id = $2", alias),
	}
	args := []any{f.Tenant.UserID, f.Tenant.ProjectID}

	if f.Code != "" {
		whereParts = append(whereParts, fmt.Sprintf("%scode = $3", alias))
		args = append(args, f.Code)
	}
	return strings.Join(whereParts, " AND "), args
}

// buildListQuery joins each content to the count of its entries, computed
// in a single grouped aggregation over the project's entries.
func buildListQuery(f Filter, limit, offset int) (string, []any) {
	where, args := buildWhere(f, "c.")
	argIdx := len(args) + 1

	sql := fmt.Sprintf(`SELECT c.id, c.user_id, c.project_id, c.name, c.code, c.entries, c.sections,
		c.notifications, c.translations, c.created_at, c.updated_at, COALESCE(e.n, 0)
		FROM contents c
		LEFT JOIN (
			SELECT content_id, COUNT(*) AS n FROM entries WHERE project_id = $2 GROUP BY content_id
		) e ON e.content_id = c.id
		WHERE %s
		ORDER BY c.id ASC
		LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)

	args = append(args, limit, offset)
	return sql, args
}
