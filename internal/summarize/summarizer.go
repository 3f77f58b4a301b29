package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/livechatter/internal/chat"
)

const (
	// EmptyBatchText is returned without touching the provider.
	EmptyBatchText = "(No messages to summarize)"

	systemPrompt = "You are a witty, conversational live stream co-host. " +
		"Your summaries are read aloud by a text-to-speech voice, so keep them " +
		"concise, flowing and easy to listen to. No markdown, no lists."

	// Below this batch size the chat is quiet enough to just read out.
	quietChatThreshold = 5

	defaultTemperature = 0.7
	defaultMaxTokens   = 150
)

// Summarizer turns a batch of chat messages into narration text. It never
// returns an error: provider failures come back as a displayable in-band
// string so neither the log nor the narration path ever sees a crash.
type Summarizer struct {
	generator Generator

	// OnProviderError, when set, is called with the provider name each
	// time a generation call fails. Set before the first Summarize.
	OnProviderError func(provider string)
}

func New(generator Generator) *Summarizer {
	return &Summarizer{generator: generator}
}

func (s *Summarizer) Summarize(ctx context.Context, batch []chat.Message) string {
	if len(batch) == 0 {
		return EmptyBatchText
	}
	if s.generator == nil {
		return "(provider error: no summary provider configured)"
	}

	out, err := s.generator.Generate(ctx, Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(batch),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		if s.OnProviderError != nil {
			s.OnProviderError(s.generator.Name())
		}
		return fmt.Sprintf("(provider error: %v)", err)
	}
	return strings.TrimSpace(out)
}

// BuildPrompt serializes the batch as "author: text" lines in arrival
// order, with an instruction that branches on batch size: a near-empty
// chat is commented on and read out verbatim, a busy one is condensed.
func BuildPrompt(batch []chat.Message) string {
	var b strings.Builder
	if len(batch) < quietChatThreshold {
		b.WriteString("The chat has been quiet, with only a handful of messages. ")
		b.WriteString("Comment briefly on the quiet chat and read out the few messages verbatim.\n\n")
	} else {
		b.WriteString("Summarize this live chat for listeners who stepped away. ")
		b.WriteString("Capture the overall vibe, the topics discussed and any highlights. ")
		b.WriteString("Do not list every message.\n\n")
	}
	b.WriteString("Messages:\n")
	for _, msg := range batch {
		b.WriteString(msg.Line())
		b.WriteString("\n")
	}
	return b.String()
}
