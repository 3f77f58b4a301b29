package chat

import (
	"regexp"
	"strings"
)

var (
	rawVideoID      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`live/([A-Za-z0-9_-]{11})`),
	}
)

// ExtractVideoID accepts a bare 11-character video id or a URL containing
// one and returns the id, or "" when the input matches nothing. First
// pattern match wins.
func ExtractVideoID(urlOrID string) string {
	s := strings.TrimSpace(urlOrID)
	if rawVideoID.MatchString(s) {
		return s
	}
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}
