// Package translations implements the translation API: per-locale values
// of one key of an entry or a file.
package translations

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

// ErrNotFound is returned when a translation does not exist in the scope.
var ErrNotFound = errors.New("translation not found")

// Filter selects translations of one Content. A non-nil SubjectIDs
// replaces SubjectID with a set match; an empty set matches nothing.
type Filter struct {
	Scope      model.Scope
	Lang       string
	Key        string
	Subject    string
	SubjectID  string
	SubjectIDs []string
}

const translationColumns = `id, user_id, project_id, content_id, subject_id, subject, key, lang, value, created_at`

// Repository provides database operations for the translations table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func buildListQuery(f Filter, limit, offset int) (string, []any) {
	var w query.Where
	w.Eq("user_id", f.Scope.UserID)
	w.Eq("project_id", f.Scope.ProjectID)
	w.Eq("content_id", f.Scope.ContentID)

	for _, c := range []struct{ col, val string }{
		{"lang", f.Lang},
		{"key", f.Key},
		{"subject", f.Subject},
	} {
		if c.val != "" {
			w.Eq(c.col, c.val)
		}
	}

	switch {
	case f.SubjectIDs != nil:
		w.In("subject_id", f.SubjectIDs)
	case f.SubjectID != "":
		w.Eq("subject_id", f.SubjectID)
	}

	where := w.SQL()
	page := w.Page(limit, offset)
	sql := fmt.Sprintf("SELECT %s FROM translations WHERE %s ORDER BY id ASC %s", translationColumns, where, page)
	return sql, w.Args()
}

// List returns a page of translations ordered by id.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]model.Translation, error) {
	sql, args := buildListQuery(f, limit, offset)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying translations: %w", err)
	}
	defer rows.Close()

	out, err := pgx.CollectRows(rows, scanTranslation)
	if err != nil {
		return nil, fmt.Errorf("scanning translations: %w", err)
	}
	return out, nil
}

// Get returns the translation with id in scope.
func (r *Repository) Get(ctx context.Context, scope model.Scope, id string) (*model.Translation, error) {
	sql := `SELECT ` + translationColumns + ` FROM translations
		WHERE id = $1 AND user_id = $2 AND project_id = $3 AND content_id = $4`

	rows, err := r.db.Pool().Query(ctx, sql, id, scope.UserID, scope.ProjectID, scope.ContentID)
	if err != nil {
		return nil, fmt.Errorf("querying translation: %w", err)
	}
	return collectOne(rows)
}

// Insert stores a new translation and returns the stored row.
func (r *Repository) Insert(ctx context.Context, t *model.Translation) (*model.Translation, error) {
	value, err := json.Marshal(t.Value)
	if err != nil {
		return nil, fmt.Errorf("encoding translation value: %w", err)
	}

	sql := `INSERT INTO translations (id, user_id, project_id, content_id, subject_id, subject, key, lang, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + translationColumns

	rows, err := r.db.Pool().Query(ctx, sql,
		t.ID, t.UserID, t.ProjectID, t.ContentID, t.SubjectID, string(t.Subject), t.Key, t.Lang, value)
	if err != nil {
		return nil, fmt.Errorf("inserting translation: %w", err)
	}
	return collectOne(rows)
}

// Update replaces the subject, key, lang and value of a translation.
func (r *Repository) Update(ctx context.Context, t *model.Translation) (*model.Translation, error) {
	value, err := json.Marshal(t.Value)
	if err != nil {
		return nil, fmt.Errorf("encoding translation value: %w", err)
	}

	sql := `UPDATE translations
		SET subject_id = $3, subject = $4, key = $5, lang = $6, value = $7
		WHERE id = $1 AND project_id = $2
		RETURNING ` + translationColumns

	rows, err := r.db.Pool().Query(ctx, sql,
		t.ID, t.ProjectID, t.SubjectID, string(t.Subject), t.Key, t.Lang, value)
	if err != nil {
		return nil, fmt.Errorf("updating translation: %w", err)
	}
	return collectOne(rows)
}

func scanTranslation(row pgx.CollectableRow) (model.Translation, error) {
	var t model.Translation
	var subject string
	err := row.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.ContentID, &t.SubjectID, &subject,
		&t.Key, &t.Lang, &t.Value, &t.CreatedAt)
	t.Subject = model.TranslationSubject(subject)
	if t.Value == nil {
		t.Value = map[string]any{}
	}
	return t, err
}

func collectOne(rows pgx.Rows) (*model.Translation, error) {
	t, err := pgx.CollectOneRow(rows, scanTranslation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning translation: %w", err)
	}
	return &t, nil
}
