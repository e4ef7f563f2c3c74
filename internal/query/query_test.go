package query

import (
	"net/url"
	"reflect"
	"testing"
)

func TestParseParams(t *testing.T) {
	q := url.Values{}
	q.Set("sinceId", "e5")
	q.Set("ids", "e1, e2,,e3")
	q.Set("doc.color", "red")
	q.Set("doc.", "ignored")
	q.Set("search_field_key", "title")
	q.Set("search_field_value", "shoe")
	q.Set("limit", "5")

	p := ParseParams(q)

	if p.SinceID != "e5" {
		t.Errorf("SinceID = %q", p.SinceID)
	}
	if !reflect.DeepEqual(p.IDs, []string{"e1", "e2", "e3"}) {
		t.Errorf("IDs = %v", p.IDs)
	}
	if !reflect.DeepEqual(p.Doc, map[string]string{"color": "red"}) {
		t.Errorf("Doc = %v", p.Doc)
	}
	if p.SearchKey != "title" || p.SearchValue != "shoe" {
		t.Errorf("search = %q/%q", p.SearchKey, p.SearchValue)
	}
}

func TestWhere_Apply(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty",
			params:   Params{},
			wantSQL:  "project_id = $1",
			wantArgs: []any{"p1"},
		},
		{
			name:     "since id",
			params:   Params{SinceID: "e5"},
			wantSQL:  "project_id = $1 AND id > $2",
			wantArgs: []any{"p1", "e5"},
		},
		{
			name:     "ids override since id",
			params:   Params{SinceID: "e5", IDs: []string{"e1", "e2"}},
			wantSQL:  "project_id = $1 AND id = ANY($2)",
			wantArgs: []any{"p1", []string{"e1", "e2"}},
		},
		{
			name:     "doc filters sorted",
			params:   Params{Doc: map[string]string{"size": "m", "color": "red"}},
			wantSQL:  "project_id = $1 AND doc ->> $2 = $3 AND doc ->> $4 = $5",
			wantArgs: []any{"p1", "color", "red", "size", "m"},
		},
		{
			name:     "search",
			params:   Params{SearchKey: "title", SearchValue: "a+b"},
			wantSQL:  "project_id = $1 AND doc ->> $2 ~* $3",
			wantArgs: []any{"p1", "title", `(^|[-\s,.:;"'])a\+b`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w Where
			w.Eq("project_id", "p1")
			w.Apply(tt.params)

			if got := w.SQL(); got != tt.wantSQL {
				t.Errorf("SQL() = %q, want %q", got, tt.wantSQL)
			}
			if !reflect.DeepEqual(w.Args(), tt.wantArgs) {
				t.Errorf("Args() = %#v, want %#v", w.Args(), tt.wantArgs)
			}
		})
	}
}

func TestWhere_Empty(t *testing.T) {
	var w Where
	if w.SQL() != "TRUE" {
		t.Errorf("SQL() = %q, want TRUE", w.SQL())
	}
}

func TestWhere_ContainsNullAndPage(t *testing.T) {
	var w Where
	w.IsNull("parent_id")
	w.Contains("section_ids", "s1")
	page := w.Page(10, 20)

	if w.SQL() != "parent_id IS NULL AND $1 = ANY(section_ids)" {
		t.Errorf("SQL() = %q", w.SQL())
	}
	if page != "LIMIT $2 OFFSET $3" {
		t.Errorf("Page() = %q", page)
	}
	if !reflect.DeepEqual(w.Args(), []any{"s1", 10, 20}) {
		t.Errorf("Args() = %v", w.Args())
	}
}
