// Package unique answers whether a value is still free within a project
// scope. Store failures never block a write: they collapse to Unknown.
package unique

import (
	"context"
	"log/slog"
)

// Result is the tri-state outcome of a uniqueness check.
type Result int

const (
	// Unknown means the check could not be performed.
	Unknown Result = iota
	// Unique means no other record holds the value.
	Unique
	// Conflict means another record already holds the value.
	Conflict
)

func (r Result) String() string {
	switch r {
	case Unique:
		return "unique"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Subject is the kind of record a check runs against.
type Subject string

// Supported subjects.
const (
	SubjectContent Subject = "content"
	SubjectEntry   Subject = "entry"
	SubjectSection Subject = "section"
)

// Query scopes a uniqueness check. ContentID scopes entry and section
// checks to one Content; ExcludeID is the record being edited.
type Query struct {
	Subject   Subject
	ProjectID string
	ContentID string
	ExcludeID string

	// Key is the Content column for content checks and the document key
	// for entry and section checks.
	Key string
}

// Lookup reports whether any record matching q holds value.
type Lookup interface {
	Exists(ctx context.Context, q Query, value any) (bool, error)
}

// Checker runs uniqueness checks against a Lookup.
type Checker struct {
	lookup Lookup
}

// NewChecker creates a Checker.
func NewChecker(lookup Lookup) *Checker {
	return &Checker{lookup: lookup}
}

// Check reports whether value is free in the scope of q. A missing project
// or key, a nil value, or a failing lookup yields Unknown.
func (c *Checker) Check(ctx context.Context, q Query, value any) Result {
	if q.ProjectID == "" || q.Key == "" || value == nil {
		return Unknown
	}

	exists, err := c.lookup.Exists(ctx, q, value)
	if err != nil {
		slog.Warn("uniqueness check failed",
			"subject", q.Subject,
			"project_id", q.ProjectID,
			"key", q.Key,
			"error", err,
		)
		return Unknown
	}
	if exists {
		return Conflict
	}
	return Unique
}
