package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// InnerTubeConfig controls the primary YouTube live chat backend.
type InnerTubeConfig struct {
	BaseURL       string
	ClientVersion string
	Timeout       time.Duration
}

// InnerTubeSource polls the youtubei live_chat endpoint and exposes the
// rich message shape: kind, moderator and verified flags come straight
// from the renderer metadata.
type InnerTubeSource struct {
	cfg          InnerTubeConfig
	client       *http.Client
	apiKey       string
	continuation string
	alive        bool
}

func NewInnerTubeSource(cfg InnerTubeConfig) *InnerTubeSource {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://www.youtube.com"
	}
	if strings.TrimSpace(cfg.ClientVersion) == "" {
		cfg.ClientVersion = "2.20240731.00.00"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &InnerTubeSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *InnerTubeSource) Name() string { return "innertube" }

var (
	innertubeKeyRe   = regexp.MustCompile(`"INNERTUBE_API_KEY":"([^"]+)"`)
	continuationRe   = regexp.MustCompile(`"continuation":"([^"]+)"`)
	chatDisabledText = "Chat is disabled for this live stream"
)

func (s *InnerTubeSource) Connect(ctx context.Context, videoID string) error {
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/watch?v=" + videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create watch request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch watch page: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("watch page status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read watch page: %w", err)
	}

	page := string(body)
	key := innertubeKeyRe.FindStringSubmatch(page)
	cont := continuationRe.FindStringSubmatch(page)
	if key == nil || cont == nil {
		if strings.Contains(page, chatDisabledText) {
			return ErrChatDisabled
		}
		return fmt.Errorf("no live chat continuation found for video %s", videoID)
	}

	s.apiKey = key[1]
	s.continuation = cont[1]
	s.alive = true
	return nil
}

type innerTubeChatResponse struct {
	ContinuationContents struct {
		LiveChatContinuation struct {
			Continuations []struct {
				InvalidationContinuationData *struct {
					Continuation string `json:"continuation"`
				} `json:"invalidationContinuationData"`
				TimedContinuationData *struct {
					Continuation string `json:"continuation"`
				} `json:"timedContinuationData"`
			} `json:"continuations"`
			Actions []struct {
				AddChatItemAction *struct {
					Item json.RawMessage `json:"item"`
				} `json:"addChatItemAction"`
			} `json:"actions"`
		} `json:"liveChatContinuation"`
	} `json:"continuationContents"`
}

type chatItem struct {
	TextMessageRenderer *messageRenderer `json:"liveChatTextMessageRenderer"`
	PaidMessageRenderer *messageRenderer `json:"liveChatPaidMessageRenderer"`
	PaidStickerRenderer *messageRenderer `json:"liveChatPaidStickerRenderer"`
}

type messageRenderer struct {
	AuthorName struct {
		SimpleText string `json:"simpleText"`
	} `json:"authorName"`
	Message struct {
		Runs []struct {
			Text  string `json:"text"`
			Emoji *struct {
				Shortcuts []string `json:"shortcuts"`
			} `json:"emoji"`
		} `json:"runs"`
	} `json:"message"`
	AuthorBadges []struct {
		LiveChatAuthorBadgeRenderer struct {
			Icon *struct {
				IconType string `json:"iconType"`
			} `json:"icon"`
		} `json:"liveChatAuthorBadgeRenderer"`
	} `json:"authorBadges"`
}

func (s *InnerTubeSource) Poll(ctx context.Context) ([]Message, error) {
	if !s.alive {
		return nil, fmt.Errorf("poll on dead innertube handle")
	}

	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB",
				"clientVersion": s.cfg.ClientVersion,
			},
		},
		"continuation": s.continuation,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal live_chat request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/youtubei/v1/live_chat/get_live_chat?key=" + s.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create live_chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch live_chat: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live_chat status %d", res.StatusCode)
	}

	var parsed innerTubeChatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode live_chat response: %w", err)
	}

	cont := parsed.ContinuationContents.LiveChatContinuation
	next := ""
	for _, c := range cont.Continuations {
		if c.InvalidationContinuationData != nil {
			next = c.InvalidationContinuationData.Continuation
			break
		}
		if c.TimedContinuationData != nil {
			next = c.TimedContinuationData.Continuation
			break
		}
	}
	if next == "" {
		// The chat feed ends when YouTube stops handing out continuations.
		s.alive = false
	} else {
		s.continuation = next
	}

	var out []Message
	for _, action := range cont.Actions {
		if action.AddChatItemAction == nil {
			continue
		}
		var item chatItem
		if err := json.Unmarshal(action.AddChatItemAction.Item, &item); err != nil {
			continue
		}
		if msg, ok := normalizeItem(item); ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *InnerTubeSource) IsAlive() bool { return s.alive }

func (s *InnerTubeSource) Terminate() {
	s.alive = false
	s.continuation = ""
}

func normalizeItem(item chatItem) (Message, bool) {
	var (
		r    *messageRenderer
		kind Kind
	)
	switch {
	case item.TextMessageRenderer != nil:
		r, kind = item.TextMessageRenderer, KindText
	case item.PaidMessageRenderer != nil:
		r, kind = item.PaidMessageRenderer, KindSuperChat
	case item.PaidStickerRenderer != nil:
		r, kind = item.PaidStickerRenderer, KindSticker
	default:
		return Message{}, false
	}

	var text strings.Builder
	for _, run := range r.Message.Runs {
		if run.Text != "" {
			text.WriteString(run.Text)
			continue
		}
		if run.Emoji != nil && len(run.Emoji.Shortcuts) > 0 {
			text.WriteString(run.Emoji.Shortcuts[0])
		}
	}

	msg := Message{
		Author: strings.TrimSpace(r.AuthorName.SimpleText),
		Text:   text.String(),
		Kind:   kind,
	}
	for _, badge := range r.AuthorBadges {
		if badge.LiveChatAuthorBadgeRenderer.Icon == nil {
			continue
		}
		switch badge.LiveChatAuthorBadgeRenderer.Icon.IconType {
		case "MODERATOR":
			msg.Moderator = true
		case "VERIFIED":
			msg.Verified = true
		}
	}
	return msg, true
}
