// Package search builds the document field search used by entry and
// section listings: a case-insensitive match of a value at the start of a
// word inside one document field.
package search

import (
	"fmt"
	"regexp"
)

// boundary matches the start of the field or a word separator.
const boundary = `(^|[-\s,.:;"'])`

// Pattern returns the POSIX regular expression matching value at a word
// boundary. value is matched literally.
func Pattern(value string) string {
	return boundary + regexp.QuoteMeta(value)
}

// BuildSearchClause generates the SQL fragment matching doc field key
// against value, starting at parameter paramIdx. It returns an empty clause
// and nil args when key or value is empty.
//
//	doc ->> $3 ~* $4
func BuildSearchClause(key, value string, paramIdx int) (whereClause string, args []any) {
	if key == "" || value == "" {
		return "", nil
	}

	whereClause = fmt.Sprintf("doc ->> $%d ~* $%d", paramIdx, paramIdx+1)
	args = []any{key, Pattern(value)}
	return whereClause, args
}
