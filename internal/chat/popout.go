package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// PopoutConfig controls the fallback chat backend.
type PopoutConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PopoutSource is the fallback backend: it scrapes the popout live chat
// page instead of the InnerTube API. Only author and text survive the
// scrape, so every message is normalized as plain text with all flags
// false. Repeated fetches are deduplicated by the renderer id.
type PopoutSource struct {
	cfg     PopoutConfig
	client  *http.Client
	videoID string
	alive   bool
	seen    map[string]struct{}
	order   []string
}

const popoutSeenLimit = 2048

func NewPopoutSource(cfg PopoutConfig) *PopoutSource {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://www.youtube.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PopoutSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		seen:   make(map[string]struct{}),
	}
}

func (s *PopoutSource) Name() string { return "popout" }

func (s *PopoutSource) Connect(ctx context.Context, videoID string) error {
	s.videoID = videoID
	page, err := s.fetchPage(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(page, chatDisabledText) {
		return ErrChatDisabled
	}
	if !strings.Contains(page, "ytInitialData") {
		return fmt.Errorf("no chat data on popout page for video %s", videoID)
	}
	s.alive = true
	return nil
}

var ytInitialDataRe = regexp.MustCompile(`(?s)ytInitialData\s*=\s*(\{.*?\});`)

func (s *PopoutSource) Poll(ctx context.Context) ([]Message, error) {
	if !s.alive {
		return nil, fmt.Errorf("poll on dead popout handle")
	}
	page, err := s.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	if strings.Contains(page, chatDisabledText) {
		return nil, ErrChatDisabled
	}

	m := ytInitialDataRe.FindStringSubmatch(page)
	if m == nil {
		s.alive = false
		return nil, fmt.Errorf("chat data disappeared from popout page")
	}

	items, err := extractPopoutItems([]byte(m[1]))
	if err != nil {
		return nil, err
	}

	var out []Message
	for _, it := range items {
		if it.ID == "" || it.Author == "" {
			continue
		}
		if _, dup := s.seen[it.ID]; dup {
			continue
		}
		s.remember(it.ID)
		out = append(out, Message{Author: it.Author, Text: it.Text, Kind: KindText})
	}
	return out, nil
}

func (s *PopoutSource) IsAlive() bool { return s.alive }

func (s *PopoutSource) Terminate() {
	s.alive = false
	s.seen = make(map[string]struct{})
	s.order = nil
}

func (s *PopoutSource) fetchPage(ctx context.Context) (string, error) {
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/live_chat?is_popout=1&v=" + s.videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create popout request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch popout page: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("popout page status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read popout page: %w", err)
	}
	return string(body), nil
}

func (s *PopoutSource) remember(id string) {
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > popoutSeenLimit {
		drop := s.order[:len(s.order)-popoutSeenLimit]
		s.order = s.order[len(s.order)-popoutSeenLimit:]
		for _, old := range drop {
			delete(s.seen, old)
		}
	}
}

type popoutItem struct {
	ID     string
	Author string
	Text   string
}

// extractPopoutItems walks ytInitialData for text message renderers. The
// popout page nests them under varying action shapes, so the walk is a
// generic descent keyed on the renderer name.
func extractPopoutItems(data []byte) ([]popoutItem, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode popout chat data: %w", err)
	}
	var out []popoutItem
	walkPopout(root, &out)
	return out, nil
}

func walkPopout(node any, out *[]popoutItem) {
	switch v := node.(type) {
	case map[string]any:
		if r, ok := v["liveChatTextMessageRenderer"].(map[string]any); ok {
			*out = append(*out, popoutRendererItem(r))
			return
		}
		for _, child := range v {
			walkPopout(child, out)
		}
	case []any:
		for _, child := range v {
			walkPopout(child, out)
		}
	}
}

func popoutRendererItem(r map[string]any) popoutItem {
	item := popoutItem{}
	if id, ok := r["id"].(string); ok {
		item.ID = id
	}
	if author, ok := r["authorName"].(map[string]any); ok {
		if s, ok := author["simpleText"].(string); ok {
			item.Author = strings.TrimSpace(s)
		}
	}
	if msg, ok := r["message"].(map[string]any); ok {
		if runs, ok := msg["runs"].([]any); ok {
			var text strings.Builder
			for _, raw := range runs {
				run, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if t, ok := run["text"].(string); ok {
					text.WriteString(t)
				}
			}
			item.Text = text.String()
		}
	}
	return item
}
