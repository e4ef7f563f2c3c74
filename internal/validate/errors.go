package validate

import (
	"fmt"
	"strings"
)

// Path addresses a value inside a request body, e.g.
// ["entries", "fields", 2, "validations", 0, "value"].
type Path []any

// With returns a new path with elems appended. The receiver is not modified.
func (p Path) With(elems ...any) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}

// String renders the path with dots, mainly for logs.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ".")
}

// FieldError is a single user-facing validation error.
type FieldError struct {
	Field   Path   `json:"field"`
	Message string `json:"message"`
}

// Errors accumulates field errors. The zero value is ready to use.
type Errors struct {
	list []FieldError
}

// Add records a message at path.
func (e *Errors) Add(path Path, msg string) {
	e.list = append(e.list, FieldError{Field: path, Message: msg})
}

// AddFirst records the first message of msgs at path, if there is one.
// Scalar checks report only their first violated constraint.
func (e *Errors) AddFirst(path Path, msgs []string) {
	if len(msgs) > 0 {
		e.Add(path, msgs[0])
	}
}

// AddItems records per-element messages at path.i, skipping empty entries.
func (e *Errors) AddItems(path Path, msgs []string) {
	for i, m := range msgs {
		if m != "" {
			e.Add(path.With(i), m)
		}
	}
}

// Merge appends all errors of other.
func (e *Errors) Merge(other Errors) {
	e.list = append(e.list, other.list...)
}

// Len returns the number of recorded errors.
func (e Errors) Len() int { return len(e.list) }

// List returns the recorded errors. It never returns nil so the result
// always encodes as a JSON array.
func (e Errors) List() []FieldError {
	if e.list == nil {
		return []FieldError{}
	}
	return e.list
}

// Err returns a *ValidationError holding the recorded errors, or nil when
// there are none.
func (e Errors) Err() error {
	if len(e.list) == 0 {
		return nil
	}
	return &ValidationError{Fields: e.List()}
}

// ValidationError is returned by services when user input fails validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field errors", len(e.Fields))
}
