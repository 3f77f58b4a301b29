package reliability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/antoniostano/livechatter/internal/chat"
)

func TestIsFatalIngestError(t *testing.T) {
	if !IsFatalIngestError(chat.ErrChatDisabled) {
		t.Fatalf("chat disabled should be fatal")
	}
	if !IsFatalIngestError(fmt.Errorf("connect: %w", chat.ErrSourceUnavailable)) {
		t.Fatalf("wrapped source unavailable should be fatal")
	}
	if IsFatalIngestError(errors.New("connection reset by peer")) {
		t.Fatalf("transient network error should not be fatal")
	}
}
