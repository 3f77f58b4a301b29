package reliability

import (
	"errors"

	"github.com/antoniostano/livechatter/internal/chat"
)

// IsFatalIngestError classifies ingestion errors that must terminate the
// session instead of entering a reconnect wait.
func IsFatalIngestError(err error) bool {
	return errors.Is(err, chat.ErrChatDisabled) || errors.Is(err, chat.ErrSourceUnavailable)
}
