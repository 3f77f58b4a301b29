package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/livechatter/internal/archive"
	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/config"
	"github.com/antoniostano/livechatter/internal/ingest"
	"github.com/antoniostano/livechatter/internal/narrate"
	"github.com/antoniostano/livechatter/internal/notify"
	"github.com/antoniostano/livechatter/internal/observability"
	"github.com/antoniostano/livechatter/internal/scheduler"
	"github.com/antoniostano/livechatter/internal/session"
	"github.com/antoniostano/livechatter/internal/summarize"
)

// App owns the long-lived service state: the session registry, the
// shared speech backend and summarizer, and one runtime per active
// session.
type App struct {
	cfg        config.Config
	Sessions   *session.Manager
	Archive    archive.Store
	Metrics    *observability.Metrics
	Notifier   *notify.Notifier
	summarizer *summarize.Summarizer
	speech     narrate.Backend
	// SpeechDetail is a human-readable description of the resolved
	// speech backend, surfaced on /healthz.
	SpeechDetail string

	// SourceFactories overrides the chat backend construction; tests
	// inject scripted sources through it.
	SourceFactories func() (chat.SourceFactory, chat.SourceFactory)

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

// Runtime is the per-session machinery: supervisor, buffer, scheduler,
// dispatcher and the event fan-out hub.
type Runtime struct {
	sessionID  string
	supervisor *ingest.Supervisor
	buffer     *chat.Buffer
	scheduler  *scheduler.Scheduler
	dispatcher *narrate.Dispatcher
	hub        *eventHub
	cancel     context.CancelFunc
	done       chan struct{}
}

// Build constructs the application from configuration. External
// resources that cannot be reached degrade individual features instead
// of failing startup, with the database as the one exception.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive init failed: %w", err)
	}

	speech, detail := resolveSpeechBackend(ctx, cfg)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var player notify.CuePlayer
	if sp := notify.NewSoundPack(cfg.SoundPackDir, cfg.AudioPlayer); sp != nil {
		player = sp
	}

	summarizer := summarize.New(resolveGenerator(cfg))
	summarizer.OnProviderError = func(provider string) {
		metrics.ProviderErrors.WithLabelValues(provider).Inc()
	}

	return &App{
		cfg:          cfg,
		Sessions:     session.NewManager(),
		Archive:      store,
		Metrics:      metrics,
		Notifier:     notify.New(player),
		summarizer:   summarizer,
		speech:       speech,
		SpeechDetail: detail,
		runtimes:     make(map[string]*Runtime),
	}, nil
}

// Config returns the immutable configuration the app was built with.
func (a *App) Config() config.Config { return a.cfg }

// StartSession extracts the video id, picks a chat backend, and spins
// up the full ingestion pipeline for it. voice and mode override the
// configured defaults per session.
func (a *App) StartSession(ctx context.Context, stream, modeStr, voice string) (*session.Session, error) {
	videoID := chat.ExtractVideoID(stream)
	if videoID == "" {
		return nil, fmt.Errorf("could not extract a video id from %q", stream)
	}
	if modeStr == "" {
		modeStr = a.cfg.Mode
	}
	mode, err := scheduler.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	if voice == "" {
		voice = a.cfg.Voice
	}

	primary, fallback := a.sourceFactories()
	sup, err := ingest.NewSupervisor(primary, fallback, videoID, ingest.Config{
		PollInterval:     a.cfg.PollInterval,
		ReconnectBackoff: a.cfg.ReconnectBackoff,
	})
	if err != nil {
		return nil, err
	}

	sess := a.Sessions.Create(videoID, sup.Backend(), string(mode), voice)
	a.Metrics.ActiveSessions.Set(float64(a.Sessions.ActiveCount()))

	buffer := chat.NewBuffer()
	dispatcher := narrate.NewDispatcher(a.speech, voice)
	dispatcher.OnNarration = func(backend string) {
		a.Metrics.Narrations.WithLabelValues(backend).Inc()
	}
	sched := scheduler.New(scheduler.Config{
		Mode:            mode,
		SummaryInterval: a.cfg.SummaryInterval,
	}, buffer, a.summarizer, dispatcher)

	runCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		sessionID:  sess.ID,
		supervisor: sup,
		buffer:     buffer,
		scheduler:  sched,
		dispatcher: dispatcher,
		hub:        newEventHub(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	sched.OnSummary = func(text string, batchSize int, elapsed time.Duration) {
		a.Metrics.ObserveSummarizeLatency(elapsed)
		a.recordSummary(runCtx, rt, text, batchSize, "periodic")
	}

	a.mu.Lock()
	a.runtimes[sess.ID] = rt
	a.mu.Unlock()

	a.Notifier.OnSessionStart()
	sup.Start(runCtx)
	sched.Start(runCtx)
	go a.consume(runCtx, rt)

	log.Printf("app: session %s started for video %s (%s, %s)", sess.ID, videoID, sup.Backend(), mode)
	return sess, nil
}

// sourceFactories maps the configured chat backend to a primary and
// fallback factory. "auto" tries the rich InnerTube backend first and
// scrapes the popout page when that cannot be constructed.
func (a *App) sourceFactories() (chat.SourceFactory, chat.SourceFactory) {
	if a.SourceFactories != nil {
		return a.SourceFactories()
	}
	inner := func() (chat.Source, error) {
		return chat.NewInnerTubeSource(chat.InnerTubeConfig{}), nil
	}
	popout := func() (chat.Source, error) {
		return chat.NewPopoutSource(chat.PopoutConfig{}), nil
	}
	switch strings.ToLower(strings.TrimSpace(a.cfg.ChatBackend)) {
	case "innertube":
		return inner, nil
	case "popout":
		return popout, nil
	default:
		return inner, popout
	}
}

// consume is the single reader of the supervisor's event channel. It
// runs until the channel closes, then finalizes the session.
func (a *App) consume(ctx context.Context, rt *Runtime) {
	defer close(rt.done)

	var lastErr string
	for ev := range rt.supervisor.Events() {
		switch ev.Type {
		case ingest.EventMessage:
			rt.scheduler.OnMessage(ev.Message)
			a.Notifier.OnMessage(ev.Message)
			a.Sessions.AddMessages(rt.sessionID, 1)
			a.Metrics.MessagesIngested.WithLabelValues(rt.supervisor.Backend(), string(ev.Message.Kind)).Inc()
			if err := a.Archive.SaveMessage(ctx, archive.MessageRecord{
				SessionID: rt.sessionID,
				Author:    ev.Message.Author,
				Text:      ev.Message.Text,
				Kind:      string(ev.Message.Kind),
				Moderator: ev.Message.Moderator,
				Verified:  ev.Message.Verified,
			}); err != nil {
				log.Printf("app: archive message failed: %v", err)
			}
			rt.hub.Broadcast(SessionEvent{
				Type:      eventTypeMessage,
				SessionID: rt.sessionID,
				Author:    ev.Message.Author,
				Text:      ev.Message.Text,
				Kind:      string(ev.Message.Kind),
				Moderator: ev.Message.Moderator,
				Verified:  ev.Message.Verified,
			})
		case ingest.EventNotice:
			a.Notifier.OnIngestEvent(ev)
			a.Sessions.AddReconnect(rt.sessionID)
			a.Metrics.Reconnects.WithLabelValues(rt.supervisor.Backend()).Inc()
			rt.hub.Broadcast(SessionEvent{Type: eventTypeNotice, SessionID: rt.sessionID, Text: ev.Text})
		case ingest.EventError:
			lastErr = ev.Text
			a.Notifier.OnIngestEvent(ev)
			rt.hub.Broadcast(SessionEvent{Type: eventTypeError, SessionID: rt.sessionID, Text: ev.Text})
		case ingest.EventStopped:
			a.Notifier.OnIngestEvent(ev)
		}
	}

	a.finishSession(rt, lastErr)
}

func (a *App) finishSession(rt *Runtime, lastErr string) {
	rt.scheduler.Stop()
	rt.dispatcher.Drain(2 * time.Second)
	if _, err := a.Sessions.End(rt.sessionID, lastErr); err == nil {
		a.Metrics.ActiveSessions.Set(float64(a.Sessions.ActiveCount()))
	}
	rt.hub.Broadcast(SessionEvent{Type: eventTypeEnded, SessionID: rt.sessionID, Text: lastErr})
	rt.hub.Close()

	a.mu.Lock()
	delete(a.runtimes, rt.sessionID)
	a.mu.Unlock()
	log.Printf("app: session %s finished", rt.sessionID)
}

// StopSession cancels a session's pipeline and waits for its consumer
// to wind down.
func (a *App) StopSession(sessionID string) (*session.Session, error) {
	a.mu.Lock()
	rt, ok := a.runtimes[sessionID]
	a.mu.Unlock()
	if !ok {
		// Maybe already finished on its own; report its final state.
		return a.Sessions.Get(sessionID)
	}

	rt.cancel()
	rt.supervisor.Stop(a.cfg.ShutdownTimeout)
	select {
	case <-rt.done:
	case <-time.After(a.cfg.ShutdownTimeout):
		log.Printf("app: session %s consumer did not finish in time", sessionID)
	}
	return a.Sessions.Get(sessionID)
}

// QuickSummary summarizes the most recent buffered messages of an
// active session on demand and narrates the result.
func (a *App) QuickSummary(ctx context.Context, sessionID string, window int) (string, error) {
	a.mu.Lock()
	rt, ok := a.runtimes[sessionID]
	a.mu.Unlock()
	if !ok {
		return "", session.ErrNotFound
	}
	if window == 0 {
		window = a.cfg.QuickSummaryCount
	}

	start := time.Now()
	text, batchSize := rt.scheduler.QuickSummary(ctx, window)
	a.Metrics.ObserveSummarizeLatency(time.Since(start))
	if text == scheduler.NoRecentMessagesText {
		rt.dispatcher.Speak(text)
	} else {
		rt.dispatcher.Speak("Summary: " + text)
		a.recordSummary(ctx, rt, text, batchSize, "quick")
	}
	return text, nil
}

// recordSummary archives a summary and fans it out; shared by the
// periodic flush callback and quick summaries.
func (a *App) recordSummary(ctx context.Context, rt *Runtime, text string, batchSize int, trigger string) {
	a.Notifier.OnSummary()
	a.Sessions.AddSummary(rt.sessionID)
	a.Metrics.Summaries.WithLabelValues(trigger).Inc()
	if err := a.Archive.SaveSummary(ctx, archive.SummaryRecord{
		SessionID: rt.sessionID,
		Text:      text,
		BatchSize: batchSize,
	}); err != nil {
		log.Printf("app: archive summary failed: %v", err)
	}
	rt.hub.Broadcast(SessionEvent{
		Type:      eventTypeSummary,
		SessionID: rt.sessionID,
		Text:      text,
		BatchSize: batchSize,
	})
}

// Subscribe attaches to a session's live event feed. The returned
// cancel must be called when the subscriber goes away.
func (a *App) Subscribe(sessionID string) (<-chan SessionEvent, func(), error) {
	a.mu.Lock()
	rt, ok := a.runtimes[sessionID]
	a.mu.Unlock()
	if !ok {
		return nil, nil, session.ErrNotFound
	}
	ch, cancel := rt.hub.Subscribe()
	return ch, cancel, nil
}

// Voices lists the resolved speech backend's catalog.
func (a *App) Voices(ctx context.Context) (string, []narrate.Voice, error) {
	if a.speech == nil {
		return "", nil, nil
	}
	voices, err := a.speech.Voices(ctx)
	if err != nil {
		return a.speech.Name(), nil, err
	}
	return a.speech.Name(), voices, nil
}

// SpeakTest narrates a sample line with the configured voice, for
// checking credentials and audio output.
func (a *App) SpeakTest(text, voice string) error {
	if a.speech == nil {
		return fmt.Errorf("no speech backend available")
	}
	if voice == "" {
		voice = a.cfg.Voice
	}
	if strings.TrimSpace(text) == "" {
		text = "Livechatter TTS test. Backend: " + a.speech.Name() + "."
		if voice != "" {
			text += " Voice: " + voice + "."
		}
	}
	d := narrate.NewDispatcher(a.speech, voice)
	d.OnNarration = func(backend string) {
		a.Metrics.Narrations.WithLabelValues(backend).Inc()
	}
	d.Speak(text)
	d.Drain(10 * time.Second)
	return nil
}

// Shutdown stops every active session and closes shared resources.
func (a *App) Shutdown() {
	a.mu.Lock()
	ids := make([]string, 0, len(a.runtimes))
	for id := range a.runtimes {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		if _, err := a.StopSession(id); err != nil {
			log.Printf("app: stop session %s: %v", id, err)
		}
	}
	if err := a.Archive.Close(); err != nil {
		log.Printf("app: archive close: %v", err)
	}
}
