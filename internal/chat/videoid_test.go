package chat

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ"},
		{"  dQw4w9WgXcQ  ", "dQw4w9WgXcQ"},
		{"not a url", ""},
		{"tooshort", ""},
		{"https://example.com/watch", ""},
	}
	for _, tc := range cases {
		if got := ExtractVideoID(tc.in); got != tc.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
