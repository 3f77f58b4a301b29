package narrate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleTTSConfig controls the Google Cloud text-to-speech backend.
type GoogleTTSConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GoogleTTSBackend talks to the Cloud TTS REST surface keyed by an API
// key. The voice catalog is remote; display labels carry the language
// tags ("en-US-Wavenet-D [en-US]") while the internal id is the bare
// voice name.
type GoogleTTSBackend struct {
	cfg    GoogleTTSConfig
	client *http.Client
	sink   AudioSink
}

func NewGoogleTTSBackend(cfg GoogleTTSConfig, sink AudioSink) *GoogleTTSBackend {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://texttospeech.googleapis.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleTTSBackend{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, sink: sink}
}

func (b *GoogleTTSBackend) Name() string { return "google_tts" }

func (b *GoogleTTSBackend) DefaultVoice() string { return "en-US-Standard-C" }

// Voices returns an empty catalog, not an error, when the API key is
// missing or the request fails; the dispatcher then falls back to the
// default voice.
func (b *GoogleTTSBackend) Voices(ctx context.Context) ([]Voice, error) {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return nil, nil
	}
	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/voices?key=" + url.QueryEscape(b.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil
	}
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
			Name          string   `json:"name"`
			LanguageCodes []string `json:"languageCodes"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil
	}

	out := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		if v.Name == "" {
			continue
		}
		display := v.Name
		if len(v.LanguageCodes) > 0 {
			display = fmt.Sprintf("%s [%s]", v.Name, strings.Join(v.LanguageCodes, ","))
		}
		out = append(out, Voice{DisplayName: display, ID: v.Name})
	}
	return out, nil
}

func (b *GoogleTTSBackend) Speak(ctx context.Context, text, voiceID string) error {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return errors.New("Google Cloud TTS API key is not set")
	}
	if voiceID == "" {
		voiceID = b.DefaultVoice()
	}

	payload := map[string]any{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"name":         voiceID,
			"languageCode": languageCodeOf(voiceID),
		},
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/text:synthesize?key=" + url.QueryEscape(b.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("google tts status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	return b.sink.Play(ctx, "mp3", bytes.NewReader(audio))
}

// languageCodeOf derives "en-US" from voice names like "en-US-Wavenet-D".
func languageCodeOf(voiceName string) string {
	parts := strings.SplitN(voiceName, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}
