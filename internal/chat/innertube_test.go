package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInnerTubeConnectAndPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>"INNERTUBE_API_KEY":"test-key" ... "continuation":"cont-1"</html>`)
	})
	mux.HandleFunc("/youtubei/v1/live_chat/get_live_chat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("live_chat key = %q, want test-key", r.URL.Query().Get("key"))
		}
		var req struct {
			Continuation string `json:"continuation"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode live_chat body: %v", err)
		}
		if req.Continuation != "cont-1" {
			t.Errorf("continuation = %q, want cont-1", req.Continuation)
		}
		fmt.Fprint(w, `{
			"continuationContents": {"liveChatContinuation": {
				"continuations": [{"timedContinuationData": {"continuation": "cont-2"}}],
				"actions": [
					{"addChatItemAction": {"item": {"liveChatTextMessageRenderer": {
						"authorName": {"simpleText": "alice"},
						"message": {"runs": [{"text": "hello "}, {"emoji": {"shortcuts": [":wave:"]}}]},
						"authorBadges": [{"liveChatAuthorBadgeRenderer": {"icon": {"iconType": "MODERATOR"}}}]
					}}}},
					{"addChatItemAction": {"item": {"liveChatPaidMessageRenderer": {
						"authorName": {"simpleText": "bob"},
						"message": {"runs": [{"text": "thanks!"}]}
					}}}}
				]
			}}
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewInnerTubeSource(InnerTubeConfig{BaseURL: srv.URL})
	if err := src.Connect(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !src.IsAlive() {
		t.Fatalf("IsAlive() = false after connect")
	}

	msgs, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Poll() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Author != "alice" || msgs[0].Text != "hello :wave:" || !msgs[0].Moderator || msgs[0].Kind != KindText {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Author != "bob" || msgs[1].Kind != KindSuperChat || msgs[1].Moderator {
		t.Fatalf("second message = %+v", msgs[1])
	}
	if src.continuation != "cont-2" {
		t.Fatalf("continuation not advanced: %q", src.continuation)
	}
}

func TestInnerTubeConnectChatDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>Chat is disabled for this live stream.</html>")
	}))
	defer srv.Close()

	src := NewInnerTubeSource(InnerTubeConfig{BaseURL: srv.URL})
	if err := src.Connect(context.Background(), "dQw4w9WgXcQ"); err != ErrChatDisabled {
		t.Fatalf("Connect() error = %v, want ErrChatDisabled", err)
	}
}

func TestInnerTubePollEndOfFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `"INNERTUBE_API_KEY":"k" "continuation":"c"`)
	})
	mux.HandleFunc("/youtubei/v1/live_chat/get_live_chat", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"continuationContents": {"liveChatContinuation": {"continuations": [], "actions": []}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewInnerTubeSource(InnerTubeConfig{BaseURL: srv.URL})
	if err := src.Connect(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, err := src.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if src.IsAlive() {
		t.Fatalf("IsAlive() = true after feed ended without continuation")
	}
}

func TestPopoutPollDeduplicates(t *testing.T) {
	page := `<html><script>window["ytInitialData"] = null; ytInitialData = {"contents": {"actions": [
		{"item": {"liveChatTextMessageRenderer": {"id": "m1", "authorName": {"simpleText": "alice"}, "message": {"runs": [{"text": "hi"}]}}}},
		{"item": {"liveChatTextMessageRenderer": {"id": "m2", "authorName": {"simpleText": "bob"}, "message": {"runs": [{"text": "yo"}]}}}}
	]}};</script></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	src := NewPopoutSource(PopoutConfig{BaseURL: srv.URL})
	if err := src.Connect(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	first, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first Poll() len = %d, want 2", len(first))
	}
	if first[0].Kind != KindText || first[0].Moderator || first[0].Verified {
		t.Fatalf("fallback message should be plain text with flags false: %+v", first[0])
	}

	second, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second Poll() len = %d, want 0 (deduplicated)", len(second))
	}
}
