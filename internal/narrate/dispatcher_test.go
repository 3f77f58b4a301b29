package narrate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherSpeaksWithResolvedVoice(t *testing.T) {
	backend := NewMockBackend()
	backend.VoiceList = []Voice{
		{DisplayName: "Moira", ID: "moira-id"},
		{DisplayName: "Daniel", ID: "daniel-id"},
	}

	d := NewDispatcher(backend, "daniel")
	d.Speak("hello there")
	d.Drain(time.Second)

	got := backend.Utterances()
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	if got[0].Text != "hello there" {
		t.Fatalf("unexpected text %q", got[0].Text)
	}
	if got[0].VoiceID != "daniel-id" {
		t.Fatalf("expected resolved voice daniel-id, got %q", got[0].VoiceID)
	}
}

func TestDispatcherResolvesVoiceOnce(t *testing.T) {
	calls := 0
	backend := &countingBackend{MockBackend: NewMockBackend(), voicesCalls: &calls}
	backend.VoiceList = []Voice{{DisplayName: "Rachel", ID: "r-1"}}

	d := NewDispatcher(backend, "Rachel")
	for i := 0; i < 3; i++ {
		d.Speak("line")
		d.Drain(time.Second)
	}
	if calls != 1 {
		t.Fatalf("expected one catalog lookup, got %d", calls)
	}
}

func TestDispatcherNilBackendDrops(t *testing.T) {
	d := NewDispatcher(nil, "whatever")
	hooked := false
	d.OnNarration = func(string) { hooked = true }
	d.Speak("into the void")
	d.Drain(100 * time.Millisecond)
	if hooked {
		t.Fatal("hook fired for a dropped narration")
	}
}

func TestDispatcherReportsNarrations(t *testing.T) {
	backend := NewMockBackend()
	d := NewDispatcher(backend, "")
	var backends []string
	d.OnNarration = func(b string) { backends = append(backends, b) }

	d.Speak("one")
	d.Speak("two")
	d.Speak("  ")
	d.Drain(time.Second)

	if len(backends) != 2 {
		t.Fatalf("expected 2 narrations reported, got %d", len(backends))
	}
	if backends[0] != "mock" {
		t.Fatalf("unexpected backend name %q", backends[0])
	}
}

func TestDispatcherEmptyTextIgnored(t *testing.T) {
	backend := NewMockBackend()
	d := NewDispatcher(backend, "")
	d.Speak("   ")
	d.Drain(time.Second)
	if n := len(backend.Utterances()); n != 0 {
		t.Fatalf("expected no utterances for blank text, got %d", n)
	}
}

func TestDispatcherSpeakFailureDoesNotPropagate(t *testing.T) {
	backend := NewMockBackend()
	backend.SpeakErr = errors.New("engine on fire")
	d := NewDispatcher(backend, "")
	d.Speak("still fine")
	d.Drain(time.Second)
}

func TestResolveVoiceFallsBackToDefault(t *testing.T) {
	backend := NewMockBackend()
	backend.VoiceList = []Voice{{DisplayName: "Alloy", ID: "alloy"}}
	backend.Default = "alloy"

	cases := []struct {
		preferred string
		want      string
	}{
		{"", "alloy"},
		{"Alloy", "alloy"},
		{"ALLOY", "alloy"},
		{"nonexistent", "alloy"},
	}
	for _, tc := range cases {
		if got := ResolveVoice(context.Background(), backend, tc.preferred); got != tc.want {
			t.Fatalf("ResolveVoice(%q) = %q, want %q", tc.preferred, got, tc.want)
		}
	}
}

func TestResolveVoiceCatalogErrorUsesDefault(t *testing.T) {
	backend := NewMockBackend()
	backend.VoicesErr = errors.New("api down")
	backend.Default = "fallback"
	if got := ResolveVoice(context.Background(), backend, "anything"); got != "fallback" {
		t.Fatalf("expected default on catalog error, got %q", got)
	}
}

type countingBackend struct {
	*MockBackend
	voicesCalls *int
}

func (c *countingBackend) Voices(ctx context.Context) ([]Voice, error) {
	*c.voicesCalls++
	return c.MockBackend.Voices(ctx)
}
