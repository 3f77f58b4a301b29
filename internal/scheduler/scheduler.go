package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/livechatter/internal/chat"
	"github.com/antoniostano/livechatter/internal/summarize"
)

// Mode selects how buffered chat reaches the narrator.
type Mode string

const (
	// ModeRealtime narrates every message as it arrives.
	ModeRealtime Mode = "realtime"
	// ModePeriodic batches messages and narrates an LLM summary on an
	// interval.
	ModePeriodic Mode = "periodic"
)

// ParseMode normalizes a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRealtime, "":
		return ModeRealtime, nil
	case ModePeriodic:
		return ModePeriodic, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want realtime or periodic)", s)
	}
}

// NoRecentMessagesText is what a quick summary returns for an empty
// window, without calling the provider.
const NoRecentMessagesText = "No recent messages to summarize."

const (
	defaultSummaryInterval = 5 * time.Minute
	minSummaryInterval     = time.Minute
	defaultCheckInterval   = 5 * time.Second

	defaultQuickSummaryWindow = 50
	minQuickSummaryWindow     = 5
	maxQuickSummaryWindow     = 500
)

// Narrator is the slice of the narration dispatcher the scheduler uses.
type Narrator interface {
	Speak(text string)
}

// Config controls one scheduler instance.
type Config struct {
	Mode Mode
	// SummaryInterval is the periodic flush cadence. Values below one
	// minute are raised to it; zero means the default of five minutes.
	SummaryInterval time.Duration
	// CheckInterval is how often the periodic loop looks at the clock.
	CheckInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeRealtime
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = defaultSummaryInterval
	}
	if c.SummaryInterval < minSummaryInterval {
		c.SummaryInterval = minSummaryInterval
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = defaultCheckInterval
	}
	return c
}

// Scheduler owns the dispatch policy between the message buffer and the
// narrator. In realtime mode it speaks each message on arrival and the
// buffer only feeds quick summaries; in periodic mode it drains the
// buffer into the summarizer on the configured interval.
type Scheduler struct {
	cfg        Config
	buffer     *chat.Buffer
	summarizer *summarize.Summarizer
	narrator   Narrator

	mu        sync.Mutex
	lastFlush time.Time

	cancel context.CancelFunc
	done   chan struct{}

	// OnSummary, when set, observes every periodic summary after it is
	// handed to the narrator. Used for archiving and event fan-out.
	OnSummary func(text string, batchSize int, elapsed time.Duration)
}

func New(cfg Config, buffer *chat.Buffer, summarizer *summarize.Summarizer, narrator Narrator) *Scheduler {
	return &Scheduler{
		cfg:        cfg.withDefaults(),
		buffer:     buffer,
		summarizer: summarizer,
		narrator:   narrator,
	}
}

func (s *Scheduler) Mode() Mode { return s.cfg.Mode }

// OnMessage records one ingested message. In realtime mode the message
// is narrated immediately; the buffer is appended to in both modes so
// quick summaries always have material.
func (s *Scheduler) OnMessage(msg chat.Message) {
	s.buffer.Append(msg)
	if s.cfg.Mode == ModeRealtime {
		s.narrator.Speak(msg.Line())
	}
}

// Start launches the periodic flush loop. It is a no-op in realtime
// mode.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Mode != ModePeriodic {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Lock()
	s.lastFlush = time.Now()
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.flushIfDue(ctx, time.Now())
			}
		}
	}()
}

// Stop halts the periodic loop. Buffered messages stay in the buffer;
// the caller decides whether a final flush is worth narrating.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// flushIfDue drains and narrates when the interval has elapsed and
// there is something to say. The interval baseline only advances on an
// actual flush, so an empty buffer at the deadline means the very next
// message triggers a summary on the following check.
func (s *Scheduler) flushIfDue(ctx context.Context, now time.Time) bool {
	s.mu.Lock()
	due := now.Sub(s.lastFlush) >= s.cfg.SummaryInterval
	s.mu.Unlock()
	if !due || s.buffer.Len() == 0 {
		return false
	}

	batch := s.buffer.DrainAll()
	if len(batch) == 0 {
		return false
	}
	s.mu.Lock()
	s.lastFlush = now
	s.mu.Unlock()

	start := time.Now()
	text := s.summarizer.Summarize(ctx, batch)
	elapsed := time.Since(start)
	log.Printf("scheduler: narrating summary of %d messages", len(batch))
	s.narrator.Speak("Summary: " + text)
	if s.OnSummary != nil {
		s.OnSummary(text, len(batch), elapsed)
	}
	return true
}

// QuickSummary summarizes the most recent window of buffered messages
// on demand without draining the buffer. window 0 means the default of
// 50; out-of-range values are clamped. The second return is the number
// of messages actually summarized, which may be fewer than the window.
func (s *Scheduler) QuickSummary(ctx context.Context, window int) (string, int) {
	if window == 0 {
		window = defaultQuickSummaryWindow
	}
	if window < minQuickSummaryWindow {
		window = minQuickSummaryWindow
	}
	if window > maxQuickSummaryWindow {
		window = maxQuickSummaryWindow
	}

	batch := s.buffer.SnapshotSuffix(window)
	if len(batch) == 0 {
		return NoRecentMessagesText, 0
	}
	return s.summarizer.Summarize(ctx, batch), len(batch)
}
