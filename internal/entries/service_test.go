package entries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GyroZepelix/mithril-content/internal/contents"
	"github.com/GyroZepelix/mithril-content/internal/document"
	"github.com/GyroZepelix/mithril-content/internal/files"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/query"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/unique"
)

// memStore keeps entries in memory in insertion order.
type memStore struct {
	mu      sync.Mutex
	entries []model.Entry
	inserts int
}

func (m *memStore) List(_ context.Context, f Filter, limit, offset int) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Entry
	for _, e := range m.entries {
		if e.ContentID == f.Scope.ContentID && e.ProjectID == f.Scope.ProjectID {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, f Filter) (int64, error) {
	items, _ := m.List(ctx, f, 0, 0)
	return int64(len(items)), nil
}

func (m *memStore) Get(_ context.Context, tenant model.Tenant, id string) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id && e.ProjectID == tenant.ProjectID && e.CreatedBy == tenant.UserID {
			c := clone(e)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) EntriesByIDs(_ context.Context, tenant model.Tenant, ids []string) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Entry
	for _, e := range m.entries {
		for _, id := range ids {
			if e.ID == id {
				out = append(out, clone(e))
			}
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, e *model.Entry) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	m.entries = append(m.entries, clone(*e))
	c := clone(*e)
	return &c, nil
}

func (m *memStore) Update(_ context.Context, e *model.Entry) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == e.ID {
			m.entries[i] = clone(*e)
			c := clone(*e)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) Delete(_ context.Context, tenant model.Tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id && e.ProjectID == tenant.ProjectID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Exists implements unique.Lookup over the stored docs.
func (m *memStore) Exists(_ context.Context, q unique.Query, value any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID != q.ExcludeID && e.ContentID == q.ContentID && e.Doc[q.Key] == value {
			return true, nil
		}
	}
	return false, nil
}

func clone(e model.Entry) model.Entry {
	doc := make(model.Doc, len(e.Doc))
	for k, v := range e.Doc {
		doc[k] = v
	}
	e.Doc = doc
	e.SectionIDs = append([]string(nil), e.SectionIDs...)
	return e
}

type fakeContents struct {
	items map[string]*schema.Content
}

func (f fakeContents) Get(_ context.Context, _ model.Tenant, id string) (*schema.Content, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, contents.ErrNotFound
	}
	return c, nil
}

type noFiles struct{}

func (noFiles) FilesByIDs(context.Context, string, []string) ([]files.File, error) {
	return nil, nil
}

var testScope = model.Scope{UserID: "u1", ProjectID: "p1", ContentID: "c1"}

func productContent() *schema.Content {
	return &schema.Content{
		ID: "c1",
		Entries: schema.EntrySettings{Fields: []schema.Field{
			{Key: "title", Name: "Title", Type: schema.FieldTypeSingleLineText, Validations: []schema.Rule{
				{Code: schema.RuleRequired, Type: schema.ValueTypeCheckbox, Value: true},
			}},
			{Key: "sku", Name: "SKU", Type: schema.FieldTypeSingleLineText, Validations: []schema.Rule{
				{Code: schema.RuleUnique, Type: schema.ValueTypeCheckbox, Value: true},
			}},
			{Key: "price", Name: "Price", Type: schema.FieldTypeNumberDecimal, Validations: []schema.Rule{
				{Code: schema.RuleMaxPrecision, Type: schema.ValueTypeNumber, Value: 2.0},
			}},
			{Key: "related", Name: "Related", Type: schema.FieldTypeListContentReference},
		}},
	}
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := &memStore{}
	svc, err := NewService(&Params{
		Store:     store,
		Contents:  fakeContents{items: map[string]*schema.Content{"c1": productContent()}},
		Validator: document.NewValidator(unique.NewChecker(store)),
		Resolver:  document.NewResolver(noFiles{}, store),
	})
	require.NoError(t, err)

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
	return svc, store
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(&Params{Store: &memStore{}})
	require.Error(t, err)
}

func TestService_CreateAndGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, errs, err := svc.Create(ctx, testScope, map[string]any{
		"doc":        map[string]any{"title": "Boot", "price": "19.99", "legacy": "dropped"},
		"sectionIds": "s1, s2",
	})
	require.NoError(t, err)
	require.Zero(t, errs.Len(), errs.List())
	require.Equal(t, []string{"s1", "s2"}, created.SectionIDs)
	require.Equal(t, 19.99, created.Doc["price"])
	require.NotContains(t, created.Doc, "legacy")

	got, err := svc.Get(ctx, testScope.Tenant(), created.ID)
	require.NoError(t, err)
	require.Equal(t, model.Doc{"title": "Boot", "price": 19.99}, got.Doc)
	require.NotContains(t, got.Doc, "sku")
	require.NotContains(t, got.Doc, "related")
}

func TestService_CreateUserErrors(t *testing.T) {
	svc, store := newTestService(t)

	e, errs, err := svc.Create(context.Background(), testScope, map[string]any{
		"doc":        map[string]any{"price": "12.345"},
		"sectionIds": []any{"s1", map[string]any{"id": "s2"}},
	})
	require.NoError(t, err)
	require.Nil(t, e)
	require.Zero(t, store.inserts)

	paths := map[string]string{}
	for _, fe := range errs.List() {
		paths[fe.Field.String()] = fe.Message
	}
	require.Contains(t, paths, "doc.title")
	require.Equal(t, "Value must have at most 2 decimal places", paths["doc.price"])
	require.Contains(t, paths, "sectionIds.1")
}

func TestService_CreateWithoutDocEnforcesRequired(t *testing.T) {
	svc, _ := newTestService(t)

	_, errs, err := svc.Create(context.Background(), testScope, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, 1, errs.Len())
	require.Equal(t, "doc.title", errs.List()[0].Field.String())
}

func TestService_UniqueOnCreateAndSelfEdit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, errs, err := svc.Create(ctx, testScope, map[string]any{
		"doc": map[string]any{"title": "Boot", "sku": "B-1"},
	})
	require.NoError(t, err)
	require.Zero(t, errs.Len())

	_, errs, err = svc.Create(ctx, testScope, map[string]any{
		"doc": map[string]any{"title": "Other", "sku": "B-1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, errs.Len())
	require.Equal(t, document.MsgNotUnique, errs.List()[0].Message)

	updated, errs, err := svc.Update(ctx, testScope, first.ID, map[string]any{
		"doc": map[string]any{"title": "Boot v2", "sku": "B-1"},
	})
	require.NoError(t, err)
	require.Zero(t, errs.Len(), errs.List())
	require.Equal(t, "Boot v2", updated.Doc["title"])
	require.Equal(t, "u1", updated.UpdatedBy)
}

func TestService_UpdateKeepsAbsentKeys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, testScope, map[string]any{
		"doc":        map[string]any{"title": "Boot"},
		"sectionIds": []any{"s1"},
	})
	require.NoError(t, err)

	updated, errs, err := svc.Update(ctx, testScope, created.ID, map[string]any{"sectionIds": []any{"s2"}})
	require.NoError(t, err)
	require.Zero(t, errs.Len())
	require.Equal(t, []string{"s2"}, updated.SectionIDs)
	require.Equal(t, "Boot", updated.Doc["title"])
}

func TestService_UpdateOtherContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, testScope, map[string]any{"doc": map[string]any{"title": "Boot"}})
	require.NoError(t, err)

	other := testScope
	other.ContentID = "c2"
	_, _, err = svc.Update(ctx, other, created.ID, map[string]any{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateUnknownContent(t *testing.T) {
	svc, _ := newTestService(t)

	scope := testScope
	scope.ContentID = "missing"
	_, _, err := svc.Create(context.Background(), scope, map[string]any{})
	require.ErrorIs(t, err, contents.ErrNotFound)
}

func TestService_ListResolvesReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target, _, err := svc.Create(ctx, testScope, map[string]any{"doc": map[string]any{"title": "Laces"}})
	require.NoError(t, err)
	_, errs, err := svc.Create(ctx, testScope, map[string]any{
		"doc": map[string]any{"title": "Boot", "related": []any{target.ID, "gone"}},
	})
	require.NoError(t, err)
	require.Zero(t, errs.Len(), errs.List())

	res, err := svc.List(ctx, Filter{Scope: testScope}, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.Len(t, res.Fields, 4)
	require.Equal(t, "title", res.Fields[0].Key)

	related, ok := res.Entries[1].Doc["related"].([]any)
	require.True(t, ok)
	require.Len(t, related, 1)
	require.Equal(t, target.ID, related[0].(model.Entry).ID)
}

func TestService_ListRequiresScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), Filter{Scope: model.Scope{UserID: "u1", ProjectID: "p1"}}, 10, 0)
	require.ErrorIs(t, err, model.ErrMissingScope)
}

func TestParseSectionIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []string
		wantErr string
	}{
		{"absent", nil, []string{}, ""},
		{"comma string", "a,b", []string{"a", "b"}, ""},
		{"array", []any{"a"}, []string{"a"}, ""},
		{"not an array", 5.0, []string{}, "sectionIds"},
		{"bad element", []any{"a", map[string]any{}}, []string{"a"}, "sectionIds.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, errs := parseSectionIDs(tt.raw)
			require.Equal(t, tt.want, ids)
			if tt.wantErr == "" {
				require.Zero(t, errs.Len())
				return
			}
			require.Equal(t, 1, errs.Len())
			require.Equal(t, tt.wantErr, errs.List()[0].Field.String())
		})
	}
}

func TestHandler_DeleteUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	router := NewHandler(svc).Routes()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/nope?userId=u1&projectId=p1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"error":"server_error","description":"invalid entry"}`, rr.Body.String())
}

func TestHandler_CreateAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	router := NewHandler(svc).Routes()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"userId":"u1","projectId":"p1","contentId":"c1","doc":{"title":"Boot"}}`)))

	var created struct {
		Entry      *model.Entry `json:"entry"`
		UserErrors []any        `json:"userErrors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotNil(t, created.Entry)
	require.Empty(t, created.UserErrors)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/"+created.Entry.ID+"?userId=u1&projectId=p1", nil))
	require.JSONEq(t, `{}`, rr.Body.String())
	require.Empty(t, store.entries)
}

func TestHandler_ListMissingContentID(t *testing.T) {
	svc, _ := newTestService(t)
	router := NewHandler(svc).Routes()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?userId=u1&projectId=p1", nil))

	require.JSONEq(t, `{"error":"server_error","description":"userId & projectId & contentId required"}`, rr.Body.String())
}

func TestHandler_UpdateIDMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	router := NewHandler(svc).Routes()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/e1", strings.NewReader(`{"id":"e2"}`)))

	require.JSONEq(t, `{"error":"server_error","description":"id invalid"}`, rr.Body.String())
}

func TestBuildListQuery(t *testing.T) {
	sql, args := buildListQuery(Filter{
		Scope:     testScope,
		SectionID: "s1",
		Params:    query.Params{SinceID: "e5"},
	}, 10, 0)

	require.Contains(t, sql, "WHERE created_by = $1 AND project_id = $2 AND content_id = $3 AND $4 = ANY(section_ids) AND id > $5")
	require.Contains(t, sql, "ORDER BY id ASC LIMIT $6 OFFSET $7")
	require.Equal(t, []any{"u1", "p1", "c1", "s1", "e5", 10, 0}, args)
}
