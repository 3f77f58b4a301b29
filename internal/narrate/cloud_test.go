package narrate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureSink records what cloud backends hand off for playback.
type captureSink struct {
	format string
	audio  []byte
}

func (s *captureSink) Play(_ context.Context, format string, audio io.Reader) error {
	s.format = format
	b, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	s.audio = b
	return nil
}

func TestOpenAITTSSpeak(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	sink := &captureSink{}
	b := NewOpenAITTSBackend(OpenAITTSConfig{APIKey: "sk-test", BaseURL: srv.URL}, sink)
	if err := b.Speak(context.Background(), "hello chat", "nova"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if gotBody["voice"] != "nova" || gotBody["input"] != "hello chat" {
		t.Fatalf("unexpected request body %v", gotBody)
	}
	if string(sink.audio) != "mp3-bytes" || sink.format != "mp3" {
		t.Fatalf("sink got %q format %q", sink.audio, sink.format)
	}
}

func TestOpenAITTSMissingKey(t *testing.T) {
	b := NewOpenAITTSBackend(OpenAITTSConfig{}, &captureSink{})
	if err := b.Speak(context.Background(), "hi", ""); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestOpenAITTSFixedCatalog(t *testing.T) {
	b := NewOpenAITTSBackend(OpenAITTSConfig{APIKey: "k"}, &captureSink{})
	voices, err := b.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 6 {
		t.Fatalf("expected 6 voices, got %d", len(voices))
	}
	if voices[0].ID != "alloy" {
		t.Fatalf("expected alloy first, got %q", voices[0].ID)
	}
}

func TestGoogleTTSSpeakDecodesAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/text:synthesize") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("missing api key in query")
		}
		var req struct {
			Voice struct {
				Name         string `json:"name"`
				LanguageCode string `json:"languageCode"`
			} `json:"voice"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Voice.Name != "en-GB-Wavenet-B" || req.Voice.LanguageCode != "en-GB" {
			t.Errorf("unexpected voice %+v", req.Voice)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("pcm")),
		})
	}))
	defer srv.Close()

	sink := &captureSink{}
	b := NewGoogleTTSBackend(GoogleTTSConfig{APIKey: "g-key", BaseURL: srv.URL}, sink)
	if err := b.Speak(context.Background(), "cheerio", "en-GB-Wavenet-B"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(sink.audio) != "pcm" {
		t.Fatalf("sink got %q", sink.audio)
	}
}

func TestGoogleTTSVoicesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]any{
				{"name": "en-US-Wavenet-D", "languageCodes": []string{"en-US"}},
				{"name": "de-DE-Standard-A", "languageCodes": []string{"de-DE"}},
			},
		})
	}))
	defer srv.Close()

	b := NewGoogleTTSBackend(GoogleTTSConfig{APIKey: "g-key", BaseURL: srv.URL}, &captureSink{})
	voices, err := b.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].ID != "en-US-Wavenet-D" || voices[0].DisplayName != "en-US-Wavenet-D [en-US]" {
		t.Fatalf("unexpected voice %+v", voices[0])
	}
}

func TestElevenLabsSpeakStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing xi-api-key header")
		}
		w.Write([]byte("eleven-audio"))
	}))
	defer srv.Close()

	sink := &captureSink{}
	b := NewElevenLabsBackend(ElevenLabsConfig{APIKey: "el-key", BaseURL: srv.URL}, sink)
	if err := b.Speak(context.Background(), "welcome", "voice-123"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(sink.audio) != "eleven-audio" {
		t.Fatalf("sink got %q", sink.audio)
	}
}

func TestElevenLabsVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]string{
				{"voice_id": "v1", "name": "Rachel"},
				{"voice_id": "v2", "name": "Adam"},
			},
		})
	}))
	defer srv.Close()

	b := NewElevenLabsBackend(ElevenLabsConfig{APIKey: "el-key", BaseURL: srv.URL}, &captureSink{})
	voices, err := b.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 || voices[0].DisplayName != "Rachel" || voices[0].ID != "v1" {
		t.Fatalf("unexpected voices %+v", voices)
	}
}

func TestLanguageCodeOf(t *testing.T) {
	cases := map[string]string{
		"en-US-Wavenet-D":  "en-US",
		"de-DE-Standard-A": "de-DE",
		"weird":            "en-US",
	}
	for in, want := range cases {
		if got := languageCodeOf(in); got != want {
			t.Fatalf("languageCodeOf(%q) = %q, want %q", in, got, want)
		}
	}
}
