package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/config"
	"github.com/antoniostano/livechatter/internal/session"
)

var metricsNamespaceSeq = 0

func testConfig(t *testing.T) config.Config {
	t.Helper()
	// Prometheus collectors register globally, so each test app needs
	// its own namespace.
	metricsNamespaceSeq++
	return config.Config{
		MetricsNamespace:  fmt.Sprintf("lcapptest%d", metricsNamespaceSeq),
		ChatBackend:       "auto",
		PollInterval:      5 * time.Millisecond,
		ReconnectBackoff:  20 * time.Millisecond,
		Mode:              "realtime",
		SummaryInterval:   time.Minute,
		QuickSummaryCount: 50,
		SummaryProvider:   "none",
		TTSBackend:        "none",
		ShutdownTimeout:   2 * time.Second,
	}
}

func newTestApp(t *testing.T, src chat.Source) *App {
	t.Helper()
	a, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a.SourceFactories = func() (chat.SourceFactory, chat.SourceFactory) {
		return func() (chat.Source, error) { return src, nil }, nil
	}
	return a
}

func TestStartSessionRejectsBadStreamInput(t *testing.T) {
	a := newTestApp(t, chat.NewMockSource())
	if _, err := a.StartSession(context.Background(), "not a url", "", ""); err == nil {
		t.Fatal("expected error for unextractable stream id")
	}
}

func TestStartSessionRejectsBadMode(t *testing.T) {
	a := newTestApp(t, chat.NewMockSource())
	if _, err := a.StartSession(context.Background(), "dQw4w9WgXcQ", "batchy", ""); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSessionPipelineIngestsAndStops(t *testing.T) {
	src := chat.NewMockSource(
		[]chat.Message{{Author: "a", Text: "hi"}},
		[]chat.Message{{Author: "b", Text: "yo"}, {Author: "c", Text: "hey"}},
	)
	a := newTestApp(t, src)

	sess, err := a.StartSession(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "", "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.VideoID != "dQw4w9WgXcQ" || sess.Backend != "mock" {
		t.Fatalf("unexpected session %+v", sess)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := a.Sessions.Get(sess.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.MessageCount >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("ingested %d messages, want 3", got.MessageCount)
		case <-time.After(5 * time.Millisecond):
		}
	}

	msgs, err := a.Archive.RecentMessages(context.Background(), sess.ID, 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) < 3 || msgs[0].Author != "a" {
		t.Fatalf("unexpected archived messages %+v", msgs)
	}

	ended, err := a.StopSession(sess.ID)
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if ended.Status != session.StatusEnded {
		t.Fatalf("session status %s after stop", ended.Status)
	}
	if a.Sessions.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d after stop", a.Sessions.ActiveCount())
	}
}

func TestSubscribeReceivesEndedEvent(t *testing.T) {
	src := chat.NewMockSource()
	a := newTestApp(t, src)

	sess, err := a.StartSession(context.Background(), "dQw4w9WgXcQ", "", "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	events, cancel, err := a.Subscribe(sess.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if _, err := a.StopSession(sess.ID); err != nil {
		t.Fatalf("StopSession: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == eventTypeEnded {
				return
			}
		case <-deadline:
			t.Fatal("never received ended event")
		}
	}
}

func TestQuickSummaryUnknownSession(t *testing.T) {
	a := newTestApp(t, chat.NewMockSource())
	if _, err := a.QuickSummary(context.Background(), "nope", 10); err != session.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
