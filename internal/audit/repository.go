// Package audit keeps a change log of content, entry, section and
// translation writes. Events are written asynchronously to the change_log
// table so that logging never blocks or fails API requests.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GyroZepelix/mithril-content/internal/database"
)

// Change is a single row of the change_log table.
type Change struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	UserID    *string        `json:"userId,omitempty"`
	ProjectID string         `json:"projectId"`
	Subject   string         `json:"subject"`
	SubjectID *string        `json:"subjectId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Filters narrows a change log listing. ProjectID is required.
type Filters struct {
	ProjectID string
	Action    string
	Subject   string
	SubjectID string
}

// Repository provides database operations for the change_log table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one event. Empty user and subject ids are stored as NULL.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	var payloadJSON []byte
	if event.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshaling change payload: %w", err)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating change id: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx,
		`INSERT INTO change_log (id, action, user_id, project_id, subject, subject_id, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.String(),
		event.Action,
		nullIfEmpty(event.UserID),
		event.ProjectID,
		event.Subject,
		nullIfEmpty(event.SubjectID),
		nullableJSON(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting change event: %w", err)
	}
	return nil
}

// List returns a page of change events ordered newest first.
func (r *Repository) List(ctx context.Context, filters Filters, limit, offset int) ([]*Change, error) {
	sql, args := buildListQuery(filters, limit, offset)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying change log: %w", err)
	}
	defer rows.Close()

	changes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Change, error) {
		var c Change
		var payloadJSON []byte
		if err := row.Scan(&c.ID, &c.Action, &c.UserID, &c.ProjectID, &c.Subject, &c.SubjectID, &payloadJSON, &c.CreatedAt); err != nil {
			return nil, err
		}
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &c.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling change payload: %w", err)
			}
		}
		return &c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning change log: %w", err)
	}
	return changes, nil
}

func buildListQuery(filters Filters, limit, offset int) (string, []any) {
	conditions := []string{"project_id = $1"}
	args := []any{filters.ProjectID}
	paramIdx := 2

	for _, f := range []struct{ col, val string }{
		{"action", filters.Action},
		{"subject", filters.Subject},
		{"subject_id", filters.SubjectID},
	} {
		if f.val == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", f.col, paramIdx))
		args = append(args, f.val)
		paramIdx++
	}

	sql := fmt.Sprintf(
		`SELECT id, action, user_id, project_id, subject, subject_id, payload, created_at
		 FROM change_log WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), paramIdx, paramIdx+1,
	)
	args = append(args, limit, offset)
	return sql, args
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
