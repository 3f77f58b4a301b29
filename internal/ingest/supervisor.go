package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/reliability"
)

// State identifies where the supervisor loop currently is.
type State string

const (
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateStreaming     State = "streaming"
	StateReconnectWait State = "reconnect_wait"
	StateStopped       State = "stopped"
)

// EventType tags events emitted on the supervisor's channel.
type EventType string

const (
	EventMessage EventType = "message"
	EventNotice  EventType = "notice"
	EventError   EventType = "error"
	EventStopped EventType = "stopped"
)

// Event is the single hand-off shape between the ingestion goroutine and
// the consumer. One producer, one consumer, ordering preserved.
type Event struct {
	Type    EventType
	Message chat.Message
	Text    string
	Err     error
}

// Config tunes the supervisor loop.
type Config struct {
	PollInterval     time.Duration
	ReconnectBackoff time.Duration
	EventBufferSize  int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 10 * time.Second
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 256
	}
	return c
}

// Supervisor owns one chat source and drives it through the
// connect / stream / reconnect lifecycle. A supervisor is single-use:
// once stopped it cannot be restarted, build a new one per session.
type Supervisor struct {
	cfg     Config
	source  chat.Source
	videoID string

	events chan Event
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	done  chan struct{}
}

// NewSupervisor picks the backend once, at startup: primary if its factory
// can construct a source, otherwise fallback. Mid-stream disconnects always
// reconnect against the chosen backend; there is no downgrade path.
func NewSupervisor(primary, fallback chat.SourceFactory, videoID string, cfg Config) (*Supervisor, error) {
	source, err := primary()
	if err != nil {
		log.Printf("primary chat backend unavailable: %v", err)
		source, err = fallback()
		if err != nil {
			return nil, fmt.Errorf("no chat backend is available: %w", chat.ErrSourceUnavailable)
		}
	}
	c := cfg.withDefaults()
	return &Supervisor{
		cfg:     c,
		source:  source,
		videoID: videoID,
		events:  make(chan Event, c.EventBufferSize),
		state:   StateIdle,
		done:    make(chan struct{}),
	}, nil
}

// Backend reports which chat backend the supervisor settled on.
func (s *Supervisor) Backend() string { return s.source.Name() }

// Events is the ordered event stream consumed by the session runtime.
// Closed after the terminal EventStopped.
func (s *Supervisor) Events() <-chan Event { return s.events }

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Start launches the ingestion loop on its own goroutine.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(runCtx)
}

// Stop requests cancellation and waits up to timeout for the loop to
// exit. The join is best effort; the loop observes cancellation within
// one poll interval and always terminates its source handle on the way
// out.
func (s *Supervisor) Stop(timeout time.Duration) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		// Never started, so there is no loop to join.
		return
	}
	cancel()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case <-s.done:
	case <-time.After(timeout):
		log.Printf("ingest: stop timed out after %v, proceeding", timeout)
	}
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.source.Terminate()
	defer s.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			s.emit(ctx, Event{Type: EventStopped})
			return
		}

		s.setState(StateConnecting)
		if err := s.source.Connect(ctx, s.videoID); err != nil {
			if reliability.IsFatalIngestError(err) || ctx.Err() != nil {
				s.finish(ctx, err)
				return
			}
			s.emit(ctx, Event{Type: EventNotice, Text: fmt.Sprintf("connection failed (%v), reconnecting", err)})
			if !s.backoff(ctx) {
				s.emit(ctx, Event{Type: EventStopped})
				return
			}
			continue
		}

		s.setState(StateStreaming)
		err := s.stream(ctx)
		s.source.Terminate()
		if err != nil && (reliability.IsFatalIngestError(err) || ctx.Err() != nil) {
			s.finish(ctx, err)
			return
		}
		if ctx.Err() != nil {
			s.emit(ctx, Event{Type: EventStopped})
			return
		}
		s.emit(ctx, Event{Type: EventNotice, Text: "connection lost, reconnecting"})
		if !s.backoff(ctx) {
			s.emit(ctx, Event{Type: EventStopped})
			return
		}
	}
}

// stream polls until liveness is lost or the context ends. A nil return
// means the connection dropped and a reconnect should follow.
func (s *Supervisor) stream(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.source.IsAlive() {
			return nil
		}
		msgs, err := s.source.Poll(ctx)
		if err != nil {
			if reliability.IsFatalIngestError(err) {
				return err
			}
			log.Printf("ingest: poll error: %v", err)
			return nil
		}
		for _, msg := range msgs {
			s.emit(ctx, Event{Type: EventMessage, Message: msg})
		}
	}
}

// backoff waits the reconnect window, interruptibly. Returns false when
// cancellation arrived during the wait.
func (s *Supervisor) backoff(ctx context.Context) bool {
	s.setState(StateReconnectWait)
	timer := time.NewTimer(s.cfg.ReconnectBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Supervisor) finish(ctx context.Context, err error) {
	if err != nil && ctx.Err() == nil {
		s.emit(ctx, Event{Type: EventError, Err: err, Text: err.Error()})
	}
	s.emit(ctx, Event{Type: EventStopped})
}

// emit never blocks forever: the consumer may already be gone during
// shutdown, so delivery races cancellation.
func (s *Supervisor) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
		select {
		case s.events <- ev:
		default:
		}
	}
}
