package document

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/GyroZepelix/mithril-content/internal/files"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
)

// FileLookup fetches files by id from the file service.
type FileLookup interface {
	FilesByIDs(ctx context.Context, projectID string, ids []string) ([]files.File, error)
}

// EntryLookup fetches entries of a tenant by id.
type EntryLookup interface {
	EntriesByIDs(ctx context.Context, tenant model.Tenant, ids []string) ([]model.Entry, error)
}

// Resolver replaces file and content reference ids in documents by the
// records they point at.
type Resolver struct {
	files   FileLookup
	entries EntryLookup
}

// NewResolver creates a Resolver.
func NewResolver(f FileLookup, e EntryLookup) *Resolver {
	return &Resolver{files: f, entries: e}
}

// Resolve splices referenced records into docs in place. Ids from every
// document are collected first so that each kind of record is fetched once.
// A scalar reference becomes the record or is removed when the id does not
// resolve. A list reference keeps the resolved records in id order and drops
// the rest. Values that are not ids are left alone, so resolving twice
// yields the same documents.
func (r *Resolver) Resolve(ctx context.Context, tenant model.Tenant, fields []schema.Field, docs []model.Doc) error {
	var fileRefs, entryRefs []schema.Field
	for _, f := range fields {
		switch f.Type.Elem() {
		case schema.FieldTypeFileReference:
			fileRefs = append(fileRefs, f)
		case schema.FieldTypeContentReference:
			entryRefs = append(entryRefs, f)
		}
	}

	fileIDs := collectIDs(fileRefs, docs)
	entryIDs := collectIDs(entryRefs, docs)
	if len(fileIDs) == 0 && len(entryIDs) == 0 {
		return nil
	}

	fileIndex := map[string]any{}
	entryIndex := map[string]any{}

	g, gctx := errgroup.WithContext(ctx)
	if len(fileIDs) > 0 {
		g.Go(func() error {
			found, err := r.files.FilesByIDs(gctx, tenant.ProjectID, fileIDs)
			if err != nil {
				return fmt.Errorf("fetching referenced files: %w", err)
			}
			for _, f := range found {
				fileIndex[f.ID] = f
			}
			return nil
		})
	}
	if len(entryIDs) > 0 {
		g.Go(func() error {
			found, err := r.entries.EntriesByIDs(gctx, tenant, entryIDs)
			if err != nil {
				return fmt.Errorf("fetching referenced entries: %w", err)
			}
			for _, e := range found {
				entryIndex[e.ID] = e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, doc := range docs {
		splice(doc, fileRefs, fileIndex)
		splice(doc, entryRefs, entryIndex)
	}
	return nil
}

// collectIDs returns the distinct string ids held by fields across docs, in
// first-seen order.
func collectIDs(fields []schema.Field, docs []model.Doc) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(v any) {
		if id, ok := v.(string); ok && id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, doc := range docs {
		for _, f := range fields {
			switch v := doc[f.Key].(type) {
			case []any:
				for _, item := range v {
					add(item)
				}
			default:
				add(v)
			}
		}
	}
	return ids
}

func splice(doc model.Doc, fields []schema.Field, index map[string]any) {
	for _, f := range fields {
		v, ok := doc[f.Key]
		if !ok {
			continue
		}

		if f.Type.IsList() {
			items, isList := v.([]any)
			if !isList {
				continue
			}
			out := make([]any, 0, len(items))
			for _, item := range items {
				id, isID := item.(string)
				if !isID {
					if item != nil {
						out = append(out, item)
					}
					continue
				}
				if rec, found := index[id]; found {
					out = append(out, rec)
				}
			}
			doc[f.Key] = out
			continue
		}

		id, isID := v.(string)
		if !isID {
			continue
		}
		if rec, found := index[id]; found {
			doc[f.Key] = rec
		} else {
			delete(doc, f.Key)
		}
	}
}
