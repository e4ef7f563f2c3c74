package audit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/GyroZepelix/mithril-content/internal/auth"
)

// eventChannelSize is the buffer size of the async event channel. When the
// channel is full events are dropped with a warning.
const eventChannelSize = 256

// Actions recorded by the write services.
const (
	ActionContentCreate     = "content.create"
	ActionContentUpdate     = "content.update"
	ActionEntryCreate       = "entry.create"
	ActionEntryUpdate       = "entry.update"
	ActionEntryDelete       = "entry.delete"
	ActionSectionCreate     = "section.create"
	ActionSectionUpdate     = "section.update"
	ActionSectionDelete     = "section.delete"
	ActionTranslationCreate = "translation.create"
	ActionTranslationUpdate = "translation.update"
)

// Event is one change to a project's records.
type Event struct {
	Action    string
	UserID    string
	ProjectID string
	Subject   string // "content", "entry", "section" or "translation"
	SubjectID string
	Payload   map[string]any
}

// writer persists events. It is satisfied by *Repository.
type writer interface {
	Insert(ctx context.Context, event Event) error
}

// Service records change events asynchronously. Events go to a buffered
// channel drained by a background goroutine, so a slow or failing change
// log never blocks or fails a write request.
type Service struct {
	repo         writer
	lister       *Repository
	eventCh      chan Event
	done         chan struct{}
	droppedCount atomic.Uint64
}

// NewService creates a Service. Call Start to begin processing events and
// Shutdown to drain and stop.
func NewService(repo *Repository) *Service {
	return &Service{
		repo:    repo,
		lister:  repo,
		eventCh: make(chan Event, eventChannelSize),
		done:    make(chan struct{}),
	}
}

// Log queues an event. It never blocks; when the queue is full the event
// is dropped and counted. The authenticated caller, if any, is added to the
// payload.
func (s *Service) Log(ctx context.Context, event Event) {
	if caller := auth.CallerFromContext(ctx); caller != "" {
		payload := make(map[string]any, len(event.Payload)+1)
		for k, v := range event.Payload {
			payload[k] = v
		}
		payload["caller"] = caller
		event.Payload = payload
	}

	select {
	case s.eventCh <- event:
	default:
		dropped := s.droppedCount.Add(1)
		slog.Warn("change log channel full, dropping event",
			"action", event.Action,
			"project_id", event.ProjectID,
			"subject_id", event.SubjectID,
			"total_dropped", dropped,
		)
	}
}

// Start launches the background writer. Must be called once.
func (s *Service) Start() {
	go s.processEvents()
}

// Shutdown closes the queue and waits for the writer to drain it. The
// context only bounds how long before a warning is logged; Shutdown always
// waits for the writer so no insert races the pool being closed.
func (s *Service) Shutdown(ctx context.Context) {
	close(s.eventCh)

	select {
	case <-s.done:
		slog.Info("change log shutdown complete")
	case <-ctx.Done():
		slog.Warn("change log shutdown timeout, still waiting for drain")
		<-s.done
	}
}

func (s *Service) processEvents() {
	defer close(s.done)

	for event := range s.eventCh {
		s.writeEvent(event)
	}
}

// writeEvent inserts one event. Errors are logged and dropped.
func (s *Service) writeEvent(event Event) {
	// The request context may already be cancelled.
	ctx := context.Background()

	if err := s.repo.Insert(ctx, event); err != nil {
		slog.Error("failed to write change event",
			"action", event.Action,
			"project_id", event.ProjectID,
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}

// DroppedCount returns the number of events dropped since start.
func (s *Service) DroppedCount() uint64 {
	return s.droppedCount.Load()
}

// List returns a page of a project's change events, newest first.
func (s *Service) List(ctx context.Context, filters Filters, limit, offset int) ([]*Change, error) {
	return s.lister.List(ctx, filters, limit, offset)
}
