package unique

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GyroZepelix/mithril-content/internal/database"
)

// PostgresLookup runs existence queries against the contents, entries and
// sections tables.
type PostgresLookup struct {
	db *database.DB
}

// NewPostgresLookup creates a PostgresLookup.
func NewPostgresLookup(db *database.DB) *PostgresLookup {
	return &PostgresLookup{db: db}
}

// Exists implements Lookup.
func (l *PostgresLookup) Exists(ctx context.Context, q Query, value any) (bool, error) {
	sql, args, err := buildExistsQuery(q, value)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := l.db.Pool().QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking %s uniqueness: %w", q.Subject, err)
	}
	return exists, nil
}

// contentColumns are the contents columns a uniqueness check may target.
var contentColumns = map[string]bool{
	"code": true,
	"name": true,
}

// buildExistsQuery builds the EXISTS query for q. Document values are
// compared as JSONB so that numbers, strings and lists match by value.
func buildExistsQuery(q Query, value any) (string, []any, error) {
	var table string
	var whereParts []string
	var args []any
	argIdx := 1

	whereParts = append(whereParts, fmt.Sprintf("project_id = $%d", argIdx))
	args = append(args, q.ProjectID)
	argIdx++

	switch q.Subject {
	case SubjectContent:
		if !contentColumns[q.Key] {
			return "", nil, fmt.Errorf("unsupported content key %q", q.Key)
		}
		table = "contents"
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", q.Key, argIdx))
		args = append(args, value)
		argIdx++

	case SubjectEntry, SubjectSection:
		table = "entries"
		if q.Subject == SubjectSection {
			table = "sections"
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return "", nil, fmt.Errorf("encoding value for uniqueness check: %w", err)
		}
		whereParts = append(whereParts, fmt.Sprintf("content_id = $%d", argIdx))
		args = append(args, q.ContentID)
		argIdx++
		whereParts = append(whereParts, fmt.Sprintf("doc -> $%d = $%d::jsonb", argIdx, argIdx+1))
		args = append(args, q.Key, string(raw))
		argIdx += 2

	default:
		return "", nil, fmt.Errorf("unsupported subject %q", q.Subject)
	}

	if q.ExcludeID != "" {
		whereParts = append(whereParts, fmt.Sprintf("id <> $%d", argIdx))
		args = append(args, q.ExcludeID)
	}

	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)",
		table, strings.Join(whereParts, " AND "))
	return sql, args, nil
}
