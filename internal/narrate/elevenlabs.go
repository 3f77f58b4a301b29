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

// ElevenLabsConfig controls the ElevenLabs backend.
type ElevenLabsConfig struct {
	APIKey  string
	ModelID string
	BaseURL string
	Timeout time.Duration
}

// ElevenLabsBackend streams synthesized speech from the ElevenLabs REST
// API into the audio sink.
type ElevenLabsBackend struct {
	cfg    ElevenLabsConfig
	client *http.Client
	sink   AudioSink
}

func NewElevenLabsBackend(cfg ElevenLabsConfig, sink AudioSink) *ElevenLabsBackend {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_turbo_v2_5"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ElevenLabsBackend{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, sink: sink}
}

func (b *ElevenLabsBackend) Name() string { return "elevenlabs" }

// DefaultVoice is Rachel, the stock ElevenLabs voice.
func (b *ElevenLabsBackend) DefaultVoice() string { return "21m00Tcm4TlvDq8ikWAM" }

func (b *ElevenLabsBackend) Voices(ctx context.Context) ([]Voice, error) {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return nil, nil
	}
	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/v1/voices"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("xi-api-key", b.cfg.APIKey)

	res, err := b.client.Do(req)
	if err != nil {
		return nil, nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, nil
	}

	var parsed struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil
	}

	out := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		if v.VoiceID == "" {
			continue
		}
		name := v.Name
		if name == "" {
			name = v.VoiceID
		}
		out = append(out, Voice{DisplayName: name, ID: v.VoiceID})
	}
	return out, nil
}

func (b *ElevenLabsBackend) Speak(ctx context.Context, text, voiceID string) error {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return errors.New("ElevenLabs API key is not set")
	}
	if voiceID == "" {
		voiceID = b.DefaultVoice()
	}

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": b.cfg.ModelID,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", b.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	res, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("elevenlabs status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return b.sink.Play(ctx, "mp3", res.Body)
}
