package narrate

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExecSink pipes synthesized audio into a playback command. Each Play
// call runs its own player process, mirroring the local backend's
// per-call model.
type ExecSink struct {
	player string
}

// NewExecSink picks a playback binary. Empty player means autodetect.
func NewExecSink(player string) (*ExecSink, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		for _, candidate := range []string{"ffplay", "mpv", "afplay"} {
			if _, err := exec.LookPath(candidate); err == nil {
				player = candidate
				break
			}
		}
	}
	if player == "" {
		return nil, fmt.Errorf("no audio player found (tried ffplay, mpv, afplay)")
	}
	if _, err := exec.LookPath(player); err != nil {
		return nil, fmt.Errorf("audio player %q not found: %w", player, err)
	}
	return &ExecSink{player: player}, nil
}

func (s *ExecSink) Play(ctx context.Context, _ string, audio io.Reader) error {
	var args []string
	switch baseName(s.player) {
	case "ffplay":
		args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-"}
	case "mpv":
		args = []string{"--no-video", "--really-quiet", "-"}
	default:
		args = []string{"-"}
	}
	cmd := exec.CommandContext(ctx, s.player, args...)
	cmd.Stdin = audio
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", s.player, err)
	}
	return nil
}
