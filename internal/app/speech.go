package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/antoniostano/livechatter/internal/config"
	"github.com/antoniostano/livechatter/internal/narrate"
	"github.com/antoniostano/livechatter/internal/summarize"
)

// resolveSpeechBackend builds the configured speech backend. A backend
// that cannot be constructed (missing binary, missing credential) comes
// back nil rather than failing service startup: narration then degrades
// to log diagnostics while ingestion and summaries keep working.
func resolveSpeechBackend(ctx context.Context, cfg config.Config) (narrate.Backend, string) {
	kind := strings.ToLower(strings.TrimSpace(cfg.TTSBackend))

	newSink := func() (narrate.AudioSink, error) {
		return narrate.NewExecSink(cfg.AudioPlayer)
	}

	switch kind {
	case "none":
		return nil, "narration disabled"
	case "local", "":
		b, err := narrate.NewLocalBackend(narrate.LocalConfig{CLI: cfg.SystemTTSCLI})
		if err != nil {
			log.Printf("app: local speech unavailable: %v", err)
			return nil, "local speech unavailable"
		}
		return b, "local system speech"
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			log.Printf("app: openai tts selected but OPENAI_API_KEY is not set")
			return nil, "openai tts unavailable (no key)"
		}
		sink, err := newSink()
		if err != nil {
			log.Printf("app: openai tts unavailable: %v", err)
			return nil, "openai tts unavailable (no audio player)"
		}
		return narrate.NewOpenAITTSBackend(narrate.OpenAITTSConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAITTSModel,
		}, sink), "openai tts"
	case "google":
		if strings.TrimSpace(cfg.GoogleTTSAPIKey) == "" {
			log.Printf("app: google tts selected but GOOGLE_TTS_API_KEY is not set")
			return nil, "google tts unavailable (no key)"
		}
		sink, err := newSink()
		if err != nil {
			log.Printf("app: google tts unavailable: %v", err)
			return nil, "google tts unavailable (no audio player)"
		}
		return narrate.NewGoogleTTSBackend(narrate.GoogleTTSConfig{
			APIKey: cfg.GoogleTTSAPIKey,
		}, sink), "google cloud tts"
	case "polly":
		sink, err := newSink()
		if err != nil {
			log.Printf("app: polly unavailable: %v", err)
			return nil, "polly unavailable (no audio player)"
		}
		b, err := narrate.NewPollyBackend(ctx, narrate.PollyConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}, sink)
		if err != nil {
			log.Printf("app: polly unavailable: %v", err)
			return nil, "polly unavailable"
		}
		return b, "amazon polly"
	case "elevenlabs":
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			log.Printf("app: elevenlabs selected but ELEVENLABS_API_KEY is not set")
			return nil, "elevenlabs unavailable (no key)"
		}
		sink, err := newSink()
		if err != nil {
			log.Printf("app: elevenlabs unavailable: %v", err)
			return nil, "elevenlabs unavailable (no audio player)"
		}
		return narrate.NewElevenLabsBackend(narrate.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			ModelID: cfg.ElevenLabsModel,
		}, sink), "elevenlabs"
	default:
		log.Printf("app: unknown tts backend %q, narration disabled", kind)
		return nil, fmt.Sprintf("unknown tts backend %q", kind)
	}
}

// resolveGenerator builds the summary provider. nil means summaries
// come back as in-band provider errors, which is acceptable for
// realtime-only use.
func resolveGenerator(cfg config.Config) summarize.Generator {
	switch strings.ToLower(strings.TrimSpace(cfg.SummaryProvider)) {
	case "none":
		return nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			log.Printf("app: gemini selected but GEMINI_API_KEY is not set")
			return nil
		}
		return summarize.NewGeminiGenerator(summarize.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	default:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			log.Printf("app: openai selected but OPENAI_API_KEY is not set")
			return nil
		}
		return summarize.NewOpenAIGenerator(summarize.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
	}
}
