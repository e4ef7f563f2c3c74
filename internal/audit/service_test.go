package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GyroZepelix/mithril-content/internal/auth"
)

type recordingWriter struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (w *recordingWriter) Insert(_ context.Context, event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return w.err
}

func TestLog_NonBlocking(t *testing.T) {
	s := &Service{
		eventCh: make(chan Event, 2),
		done:    make(chan struct{}),
	}

	s.eventCh <- Event{Action: "test.one"}
	s.eventCh <- Event{Action: "test.two"}

	done := make(chan struct{})
	go func() {
		s.Log(context.Background(), Event{Action: "test.dropped"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Log blocked when channel was full")
	}

	if len(s.eventCh) != 2 {
		t.Fatalf("expected 2 events in channel, got %d", len(s.eventCh))
	}
	if s.DroppedCount() != 1 {
		t.Fatalf("expected dropped count 1, got %d", s.DroppedCount())
	}
}

func TestShutdown_DrainsQueue(t *testing.T) {
	w := &recordingWriter{err: errors.New("db down")}
	s := &Service{
		repo:    w,
		eventCh: make(chan Event, 8),
		done:    make(chan struct{}),
	}
	s.Start()

	s.Log(context.Background(), Event{Action: ActionEntryCreate, ProjectID: "p1"})
	s.Log(context.Background(), Event{Action: ActionEntryUpdate, ProjectID: "p1"})
	s.Shutdown(context.Background())

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.events) != 2 {
		t.Fatalf("expected 2 written events, got %d", len(w.events))
	}
	if w.events[0].Action != ActionEntryCreate {
		t.Errorf("first action = %q", w.events[0].Action)
	}
}

func TestLog_RecordsCaller(t *testing.T) {
	s := &Service{
		eventCh: make(chan Event, 1),
		done:    make(chan struct{}),
	}
	payload := map[string]any{"code": "blog"}

	s.Log(auth.WithCaller(context.Background(), "storefront"), Event{Action: ActionContentCreate, Payload: payload})

	got := <-s.eventCh
	if got.Payload["caller"] != "storefront" {
		t.Errorf("caller = %v, want storefront", got.Payload["caller"])
	}
	if got.Payload["code"] != "blog" {
		t.Errorf("code = %v, want blog", got.Payload["code"])
	}
	if _, ok := payload["caller"]; ok {
		t.Error("Log modified the caller's payload")
	}
}

func TestShutdown_AlwaysWaitsForDone(t *testing.T) {
	s := &Service{
		eventCh: make(chan Event),
		done:    make(chan struct{}),
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		close(s.done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	start := time.Now()
	s.Shutdown(ctx)
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("Shutdown returned too quickly (%v), did not wait for done channel", elapsed)
	}
}

func TestBuildListQuery(t *testing.T) {
	sql, args := buildListQuery(Filters{ProjectID: "p1", Subject: "entry", SubjectID: "e1"}, 10, 20)

	if !strings.Contains(sql, "project_id = $1 AND subject = $2 AND subject_id = $3") {
		t.Errorf("unexpected where clause: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT $4 OFFSET $5") {
		t.Errorf("unexpected paging: %s", sql)
	}
	want := []any{"p1", "entry", "e1", 10, 20}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("nullIfEmpty(\"\") should be nil")
	}
	if got := nullIfEmpty("abc"); got == nil || *got != "abc" {
		t.Errorf("nullIfEmpty(\"abc\") = %v", got)
	}
}

func TestNullableJSON(t *testing.T) {
	if nullableJSON(nil) != nil {
		t.Error("nullableJSON(nil) should return nil")
	}
	if nullableJSON([]byte{}) != nil {
		t.Error("nullableJSON(empty) should return nil")
	}
	if nullableJSON([]byte(`{"key":"value"}`)) == nil {
		t.Error("nullableJSON(non-empty) should not return nil")
	}
}

func TestHandler_List_RequiresTenant(t *testing.T) {
	h := NewHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/?userId=u1", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error":"server_error"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}
