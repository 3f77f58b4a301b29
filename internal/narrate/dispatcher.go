package narrate

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Dispatcher routes narration text to the active speech backend without
// ever blocking or failing its caller. Each Speak spawns its own tracked
// goroutine; rapid calls may overlap audibly rather than queue, which is
// the intended behavior for the per-call local synthesis model.
type Dispatcher struct {
	backend        Backend
	preferredVoice string

	resolveOnce sync.Once
	voiceID     string

	wg sync.WaitGroup
	// Bounds the number of in-flight narrations; extras are dropped
	// with a diagnostic rather than queued behind stale speech.
	slots chan struct{}

	// OnNarration, when set, is called with the backend name for every
	// narration that is actually dispatched. Set before the first Speak.
	OnNarration func(backend string)
}

const maxInFlight = 8

// NewDispatcher builds a dispatcher for one session. backend may be nil
// when no speech backend could be constructed; Speak then degrades to a
// log line. preferredVoice is the human-facing display label from
// configuration, resolved lazily against the backend catalog.
func NewDispatcher(backend Backend, preferredVoice string) *Dispatcher {
	return &Dispatcher{
		backend:        backend,
		preferredVoice: strings.TrimSpace(preferredVoice),
		slots:          make(chan struct{}, maxInFlight),
	}
}

// Speak fires and forgets. It returns before synthesis starts.
func (d *Dispatcher) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if d.backend == nil {
		log.Printf("narrate: no speech backend available, dropping: %q", truncate(text, 80))
		return
	}

	select {
	case d.slots <- struct{}{}:
	default:
		log.Printf("narrate: %d narrations already in flight, dropping: %q", maxInFlight, truncate(text, 80))
		return
	}

	if d.OnNarration != nil {
		d.OnNarration(d.backend.Name())
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := d.backend.Speak(ctx, text, d.resolveVoice(ctx)); err != nil {
			log.Printf("narrate: %s speak failed: %v", d.backend.Name(), err)
		}
	}()
}

// Drain waits up to timeout for in-flight narrations. Shutdown is best
// effort; a stuck synthesis call does not hold the process hostage.
func (d *Dispatcher) Drain(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("narrate: drain timed out after %v", timeout)
	}
}

// resolveVoice maps the preferred display label to the backend-internal
// id, once. No preference or no catalog match falls back to the backend
// default.
func (d *Dispatcher) resolveVoice(ctx context.Context) string {
	d.resolveOnce.Do(func() {
		d.voiceID = ResolveVoice(ctx, d.backend, d.preferredVoice)
	})
	return d.voiceID
}

// ResolveVoice is the display-label → internal-id mapping shared by the
// dispatcher and the voices API. Matching is case-insensitive on both
// the display name and the raw id.
func ResolveVoice(ctx context.Context, backend Backend, preferred string) string {
	preferred = strings.TrimSpace(preferred)
	if backend == nil {
		return ""
	}
	if preferred == "" {
		return backend.DefaultVoice()
	}

	voices, err := backend.Voices(ctx)
	if err != nil {
		log.Printf("narrate: %s voice catalog lookup failed: %v", backend.Name(), err)
		return backend.DefaultVoice()
	}
	for _, v := range voices {
		if strings.EqualFold(v.DisplayName, preferred) || strings.EqualFold(v.ID, preferred) {
			return v.ID
		}
	}
	log.Printf("narrate: voice %q not found in %s catalog, using default", preferred, backend.Name())
	return backend.DefaultVoice()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
