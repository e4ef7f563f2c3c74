// Package query parses the list parameters shared by the entry and section
// APIs and turns them into parameterized SQL conditions.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/GyroZepelix/mithril-content/internal/search"
	"github.com/GyroZepelix/mithril-content/internal/server"
)

// docPrefix marks query parameters that filter on a document key.
const docPrefix = "doc."

// Params holds the parsed record list parameters.
type Params struct {
	SinceID     string
	IDs         []string          // overrides SinceID when set
	Doc         map[string]string // document key -> exact value
	SearchKey   string
	SearchValue string
}

// ParseParams extracts the record list parameters from q: sinceId, ids
// (comma separated), doc.<key>=value exact filters, and the
// search_field_key / search_field_value pair.
func ParseParams(q url.Values) Params {
	p := Params{
		SinceID:     q.Get("sinceId"),
		IDs:         server.SplitIDs(q.Get("ids")),
		Doc:         make(map[string]string),
		SearchKey:   q.Get("search_field_key"),
		SearchValue: q.Get("search_field_value"),
	}

	for key, values := range q {
		if !strings.HasPrefix(key, docPrefix) || len(values) == 0 {
			continue
		}
		if field := strings.TrimPrefix(key, docPrefix); field != "" {
			p.Doc[field] = values[0]
		}
	}
	return p
}

// Where accumulates AND-ed conditions and their positional arguments.
// Column names are never taken from user input; values always bind as
// parameters.
type Where struct {
	parts []string
	args  []any
}

// next returns the index of the next positional parameter.
func (w *Where) next() int {
	return len(w.args) + 1
}

// Eq adds col = value.
func (w *Where) Eq(col string, value any) {
	w.parts = append(w.parts, fmt.Sprintf("%s = $%d", col, w.next()))
	w.args = append(w.args, value)
}

// IsNull adds col IS NULL.
func (w *Where) IsNull(col string) {
	w.parts = append(w.parts, col+" IS NULL")
}

// Gt adds col > value.
func (w *Where) Gt(col string, value any) {
	w.parts = append(w.parts, fmt.Sprintf("%s > $%d", col, w.next()))
	w.args = append(w.args, value)
}

// In adds col = ANY(values).
func (w *Where) In(col string, values []string) {
	w.parts = append(w.parts, fmt.Sprintf("%s = ANY($%d)", col, w.next()))
	w.args = append(w.args, values)
}

// Contains adds a condition matching rows whose array column col holds
// value.
func (w *Where) Contains(col string, value string) {
	w.parts = append(w.parts, fmt.Sprintf("$%d = ANY(%s)", w.next(), col))
	w.args = append(w.args, value)
}

// DocEq adds doc ->> key = value.
func (w *Where) DocEq(key, value string) {
	idx := w.next()
	w.parts = append(w.parts, fmt.Sprintf("doc ->> $%d = $%d", idx, idx+1))
	w.args = append(w.args, key, value)
}

// Search adds the word boundary search of value in doc field key. It is a
// no-op when either is empty.
func (w *Where) Search(key, value string) {
	clause, args := search.BuildSearchClause(key, value, w.next())
	if clause == "" {
		return
	}
	w.parts = append(w.parts, clause)
	w.args = append(w.args, args...)
}

// Apply adds the conditions of p. Doc filters are added in key order so the
// generated SQL is deterministic.
func (w *Where) Apply(p Params) {
	switch {
	case len(p.IDs) > 0:
		w.In("id", p.IDs)
	case p.SinceID != "":
		w.Gt("id", p.SinceID)
	}

	keys := make([]string, 0, len(p.Doc))
	for k := range p.Doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.DocEq(k, p.Doc[k])
	}

	w.Search(p.SearchKey, p.SearchValue)
}

// SQL returns the condition list, or TRUE when there is none.
func (w *Where) SQL() string {
	if len(w.parts) == 0 {
		return "TRUE"
	}
	return strings.Join(w.parts, " AND ")
}

// Args returns the bound arguments.
func (w *Where) Args() []any {
	return w.args
}

// Page appends LIMIT and OFFSET parameters and returns the clause.
func (w *Where) Page(limit, offset int) string {
	idx := w.next()
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", idx, idx+1)
}
