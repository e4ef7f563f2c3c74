package document

import (
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
)

// Project shapes a stored document by the current schema: the result holds
// the schema's keys that the document has a value for. Missing keys stay
// absent. Keys the schema no longer defines are dropped from the output
// only; the stored document is not modified.
func Project(fields []schema.Field, doc model.Doc) model.Doc {
	out := make(model.Doc, len(fields))
	for _, f := range fields {
		if v, ok := doc[f.Key]; ok {
			out[f.Key] = v
		}
	}
	return out
}
