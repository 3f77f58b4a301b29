package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings for the chat narration service.
// Values come from an optional YAML file named by LIVECHATTER_CONFIG,
// with environment variables taking precedence over the file.
type Config struct {
	BindAddr         string        `yaml:"bind_addr"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
	AllowAnyOrigin   bool          `yaml:"allow_any_origin"`

	ChatBackend      string        `yaml:"chat_backend"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`

	Mode              string        `yaml:"mode"`
	SummaryInterval   time.Duration `yaml:"summary_interval"`
	QuickSummaryCount int           `yaml:"quick_summary_count"`

	SummaryProvider string `yaml:"summary_provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`

	TTSBackend      string `yaml:"tts_backend"`
	Voice           string `yaml:"voice"`
	SystemTTSCLI    string `yaml:"system_tts_cli"`
	AudioPlayer     string `yaml:"audio_player"`
	OpenAITTSModel  string `yaml:"openai_tts_model"`
	GoogleTTSAPIKey string `yaml:"google_tts_api_key"`

	AWSRegion          string `yaml:"aws_region"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`

	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key"`
	ElevenLabsModel  string `yaml:"elevenlabs_model"`

	SoundPackDir string `yaml:"sound_pack_dir"`
	DatabaseURL  string `yaml:"database_url"`
}

// Load reads the optional config file, then environment variables, and
// applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          ":8080",
		ShutdownTimeout:   15 * time.Second,
		MetricsNamespace:  "livechatter",
		ChatBackend:       "auto",
		PollInterval:      500 * time.Millisecond,
		ReconnectBackoff:  10 * time.Second,
		Mode:              "realtime",
		SummaryInterval:   5 * time.Minute,
		QuickSummaryCount: 50,
		SummaryProvider:   "openai",
		OpenAIModel:       "gpt-4o-mini",
		GeminiModel:       "gemini-1.5-flash",
		TTSBackend:        "local",
		OpenAITTSModel:    "gpt-4o-mini-tts",
		ElevenLabsModel:   "eleven_turbo_v2_5",
	}

	if path := trimmedEnv("LIVECHATTER_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.BindAddr = envOrDefault("LIVECHATTER_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("LIVECHATTER_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.ChatBackend = envOrDefault("LIVECHATTER_CHAT_BACKEND", cfg.ChatBackend)
	cfg.Mode = envOrDefault("LIVECHATTER_MODE", cfg.Mode)
	cfg.SummaryProvider = envOrDefault("LIVECHATTER_SUMMARY_PROVIDER", cfg.SummaryProvider)
	cfg.OpenAIAPIKey = envOrDefault("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = envOrDefault("LIVECHATTER_OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GeminiAPIKey = envOrDefault("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envOrDefault("LIVECHATTER_GEMINI_MODEL", cfg.GeminiModel)
	cfg.TTSBackend = envOrDefault("LIVECHATTER_TTS_BACKEND", cfg.TTSBackend)
	cfg.Voice = envOrDefault("LIVECHATTER_VOICE", cfg.Voice)
	cfg.SystemTTSCLI = envOrDefault("LIVECHATTER_SYSTEM_TTS_CLI", cfg.SystemTTSCLI)
	cfg.AudioPlayer = envOrDefault("LIVECHATTER_AUDIO_PLAYER", cfg.AudioPlayer)
	cfg.OpenAITTSModel = envOrDefault("LIVECHATTER_OPENAI_TTS_MODEL", cfg.OpenAITTSModel)
	cfg.GoogleTTSAPIKey = envOrDefault("GOOGLE_TTS_API_KEY", cfg.GoogleTTSAPIKey)
	cfg.AWSRegion = envOrDefault("AWS_REGION", cfg.AWSRegion)
	cfg.AWSAccessKeyID = envOrDefault("AWS_ACCESS_KEY_ID", cfg.AWSAccessKeyID)
	cfg.AWSSecretAccessKey = envOrDefault("AWS_SECRET_ACCESS_KEY", cfg.AWSSecretAccessKey)
	cfg.ElevenLabsAPIKey = envOrDefault("ELEVENLABS_API_KEY", cfg.ElevenLabsAPIKey)
	cfg.ElevenLabsModel = envOrDefault("LIVECHATTER_ELEVENLABS_MODEL", cfg.ElevenLabsModel)
	cfg.SoundPackDir = envOrDefault("LIVECHATTER_SOUND_PACK_DIR", cfg.SoundPackDir)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("LIVECHATTER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval, err = durationFromEnv("LIVECHATTER_POLL_INTERVAL", cfg.PollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectBackoff, err = durationFromEnv("LIVECHATTER_RECONNECT_BACKOFF", cfg.ReconnectBackoff)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryInterval, err = durationFromEnv("LIVECHATTER_SUMMARY_INTERVAL", cfg.SummaryInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.QuickSummaryCount, err = intFromEnv("LIVECHATTER_QUICK_SUMMARY_COUNT", cfg.QuickSummaryCount)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("LIVECHATTER_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("LIVECHATTER_POLL_INTERVAL must be positive")
	}
	if cfg.ReconnectBackoff <= 0 {
		return Config{}, fmt.Errorf("LIVECHATTER_RECONNECT_BACKOFF must be positive")
	}
	if cfg.SummaryInterval < time.Minute {
		return Config{}, fmt.Errorf("LIVECHATTER_SUMMARY_INTERVAL must be at least 1m")
	}
	if cfg.QuickSummaryCount < 5 || cfg.QuickSummaryCount > 500 {
		return Config{}, fmt.Errorf("LIVECHATTER_QUICK_SUMMARY_COUNT must be between 5 and 500")
	}
	switch cfg.ChatBackend {
	case "auto", "innertube", "popout":
	default:
		return Config{}, fmt.Errorf("LIVECHATTER_CHAT_BACKEND must be auto, innertube or popout")
	}
	switch cfg.SummaryProvider {
	case "openai", "gemini", "none":
	default:
		return Config{}, fmt.Errorf("LIVECHATTER_SUMMARY_PROVIDER must be openai, gemini or none")
	}
	switch cfg.TTSBackend {
	case "local", "openai", "google", "polly", "elevenlabs", "none":
	default:
		return Config{}, fmt.Errorf("LIVECHATTER_TTS_BACKEND must be local, openai, google, polly, elevenlabs or none")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
