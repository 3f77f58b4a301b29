package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/antoniostano/livechatter/internal/chat"
)

type stubSource struct {
	mu          sync.Mutex
	name        string
	connectErrs []error
	connects    int
	terminates  int
	batches     [][]chat.Message
	alive       bool
	pollErr     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Connect(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if len(s.connectErrs) > 0 {
		err := s.connectErrs[0]
		s.connectErrs = s.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	s.alive = true
	return nil
}

func (s *stubSource) Poll(_ context.Context) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollErr != nil {
		err := s.pollErr
		s.pollErr = nil
		return nil, err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *stubSource) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *stubSource) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.terminates++
}

func factoryFor(src chat.Source) chat.SourceFactory {
	return func() (chat.Source, error) { return src, nil }
}

func unavailableFactory() (chat.Source, error) {
	return nil, chat.ErrSourceUnavailable
}

func fastConfig() Config {
	return Config{PollInterval: 5 * time.Millisecond, ReconnectBackoff: 30 * time.Millisecond}
}

func collect(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

func TestSupervisorStopWithoutStartReturns(t *testing.T) {
	src := &stubSource{name: "primary"}
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", fastConfig())
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		sup.Stop(5 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a supervisor that was never started")
	}
}

func TestSupervisorEmitsMessagesInOrder(t *testing.T) {
	src := &stubSource{name: "primary", batches: [][]chat.Message{
		{{Author: "a", Text: "hi", Kind: chat.KindText}},
		{{Author: "b", Text: "yo", Kind: chat.KindText}, {Author: "c", Text: "sup", Kind: chat.KindText}},
	}}
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", fastConfig())
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}

	sup.Start(context.Background())
	defer sup.Stop(time.Second)

	var got []chat.Message
	deadline := time.After(time.Second)
	for len(got) < 3 {
		select {
		case ev := <-sup.Events():
			if ev.Type == EventMessage {
				got = append(got, ev.Message)
			}
		case <-deadline:
			t.Fatalf("timed out with %d messages", len(got))
		}
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].Author != want {
			t.Fatalf("message %d author = %q, want %q (order broken)", i, got[i].Author, want)
		}
	}
}

func TestSupervisorReconnectsWithBackoff(t *testing.T) {
	src := &stubSource{
		name:        "primary",
		connectErrs: []error{errors.New("dial refused"), errors.New("dial refused")},
	}
	cfg := fastConfig()
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", cfg)
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}

	start := time.Now()
	sup.Start(context.Background())
	defer sup.Stop(time.Second)

	notices := 0
	deadline := time.After(time.Second)
	for sup.State() != StateStreaming {
		select {
		case ev := <-sup.Events():
			if ev.Type == EventNotice {
				notices++
			}
		case <-deadline:
			t.Fatalf("never reached streaming; notices=%d", notices)
		}
	}
drain:
	for {
		select {
		case ev := <-sup.Events():
			if ev.Type == EventNotice {
				notices++
			}
		default:
			break drain
		}
	}
	if notices != 2 {
		t.Fatalf("reconnect notices = %d, want 2", notices)
	}
	if elapsed := time.Since(start); elapsed < 2*cfg.ReconnectBackoff {
		t.Fatalf("reached streaming in %v, want at least two backoff windows (%v)", elapsed, 2*cfg.ReconnectBackoff)
	}
	src.mu.Lock()
	connects := src.connects
	src.mu.Unlock()
	if connects != 3 {
		t.Fatalf("connect attempts = %d, want 3", connects)
	}
}

func TestSupervisorStopDuringReconnectWaitTerminatesHandle(t *testing.T) {
	src := &stubSource{name: "primary", connectErrs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	cfg := Config{PollInterval: 5 * time.Millisecond, ReconnectBackoff: 10 * time.Second}
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", cfg)
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}

	sup.Start(context.Background())
	deadline := time.After(time.Second)
	for sup.State() != StateReconnectWait {
		select {
		case <-sup.Events():
		case <-deadline:
			t.Fatalf("never entered reconnect wait")
		}
	}

	done := make(chan struct{})
	go func() {
		sup.Stop(time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop() blocked through the backoff window; wait is not interruptible")
	}

	if sup.State() != StateStopped {
		t.Fatalf("state = %q, want stopped", sup.State())
	}
	src.mu.Lock()
	terminates := src.terminates
	src.mu.Unlock()
	if terminates == 0 {
		t.Fatalf("Terminate() never invoked on stop")
	}
}

func TestSupervisorChatDisabledIsFatal(t *testing.T) {
	src := &stubSource{name: "popout", connectErrs: []error{chat.ErrChatDisabled}}
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", fastConfig())
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}
	sup.Start(context.Background())

	events := collect(t, sup.Events(), time.Second)
	var sawError, sawStopped bool
	for _, ev := range events {
		if ev.Type == EventError && errors.Is(ev.Err, chat.ErrChatDisabled) {
			sawError = true
		}
		if ev.Type == EventStopped {
			sawStopped = true
		}
	}
	if !sawError || !sawStopped {
		t.Fatalf("events = %+v, want chat-disabled error then stopped", events)
	}
	src.mu.Lock()
	connects := src.connects
	src.mu.Unlock()
	if connects != 1 {
		t.Fatalf("connect attempts = %d, want 1 (no retry on fatal error)", connects)
	}
}

func TestSupervisorFallsBackOnlyAtStartup(t *testing.T) {
	fallback := &stubSource{name: "popout"}
	sup, err := NewSupervisor(unavailableFactory, factoryFor(fallback), "dQw4w9WgXcQ", fastConfig())
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}
	if sup.Backend() != "popout" {
		t.Fatalf("Backend() = %q, want popout", sup.Backend())
	}
}

func TestSupervisorNoBackendAvailable(t *testing.T) {
	_, err := NewSupervisor(unavailableFactory, unavailableFactory, "dQw4w9WgXcQ", fastConfig())
	if !errors.Is(err, chat.ErrSourceUnavailable) {
		t.Fatalf("NewSupervisor() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestSupervisorReconnectsAfterLivenessLoss(t *testing.T) {
	src := &stubSource{name: "primary", batches: [][]chat.Message{
		{{Author: "a", Text: "hi", Kind: chat.KindText}},
	}}
	sup, err := NewSupervisor(factoryFor(src), unavailableFactory, "dQw4w9WgXcQ", fastConfig())
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}
	sup.Start(context.Background())
	defer sup.Stop(time.Second)

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sup.Events():
			if ev.Type == EventMessage {
				// Drop liveness once the first message is through.
				src.mu.Lock()
				src.alive = false
				src.mu.Unlock()
			}
			if ev.Type == EventNotice {
				return // reconnect notice observed
			}
		case <-deadline:
			t.Fatalf("no reconnect notice after liveness loss")
		}
	}
}
