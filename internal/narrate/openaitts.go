package narrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAITTSConfig controls the OpenAI speech backend.
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAITTSBackend synthesizes through the OpenAI audio/speech endpoint.
// OpenAI does not enumerate voices over the API, so the catalog is the
// documented fixed set and display name equals internal id.
type OpenAITTSBackend struct {
	cfg    OpenAITTSConfig
	client *http.Client
	sink   AudioSink
}

var openAIVoices = []string{"alloy", "verse", "aria", "coral", "sage", "nova"}

func NewOpenAITTSBackend(cfg OpenAITTSConfig, sink AudioSink) *OpenAITTSBackend {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAITTSBackend{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, sink: sink}
}

func (b *OpenAITTSBackend) Name() string { return "openai_tts" }

func (b *OpenAITTSBackend) DefaultVoice() string { return "alloy" }

func (b *OpenAITTSBackend) Voices(_ context.Context) ([]Voice, error) {
	out := make([]Voice, 0, len(openAIVoices))
	for _, v := range openAIVoices {
		out = append(out, Voice{DisplayName: v, ID: v})
	}
	return out, nil
}

func (b *OpenAITTSBackend) Speak(ctx context.Context, text, voiceID string) error {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return errors.New("OpenAI API key is not set")
	}
	if voiceID == "" {
		voiceID = b.DefaultVoice()
	}

	payload := map[string]any{
		"model":           b.cfg.Model,
		"voice":           voiceID,
		"input":           text,
		"response_format": "mp3",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(b.cfg.BaseURL, "/")+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	res, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("openai tts status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return b.sink.Play(ctx, "mp3", res.Body)
}
