package notify

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// SoundPack plays cues from a directory of audio files named after the
// cue ("reconnect.wav", "donation.mp3", ...). Playback is detached so
// Play honors the non-blocking CuePlayer contract.
type SoundPack struct {
	dir    string
	player string
}

var cueExtensions = []string{".wav", ".mp3", ".ogg"}

// NewSoundPack returns nil when dir is empty, which disables cues
// entirely. player empty means autodetect.
func NewSoundPack(dir, player string) *SoundPack {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	player = strings.TrimSpace(player)
	if player == "" {
		for _, candidate := range []string{"ffplay", "mpv", "afplay", "aplay"} {
			if _, err := exec.LookPath(candidate); err == nil {
				player = candidate
				break
			}
		}
	}
	if player == "" {
		log.Printf("notify: no audio player found, sound pack %s disabled", dir)
		return nil
	}
	return &SoundPack{dir: dir, player: player}
}

func (p *SoundPack) Play(cue Cue) {
	path := p.resolve(cue)
	if path == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var args []string
		switch filepath.Base(p.player) {
		case "ffplay":
			args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
		case "mpv":
			args = []string{"--no-video", "--really-quiet", path}
		default:
			args = []string{path}
		}
		if err := exec.CommandContext(ctx, p.player, args...).Run(); err != nil {
			log.Printf("notify: cue %s playback failed: %v", cue, err)
		}
	}()
}

// resolve finds the first existing file for the cue. Missing files are
// normal; a pack only ships the cues it cares about.
func (p *SoundPack) resolve(cue Cue) string {
	for _, ext := range cueExtensions {
		path := filepath.Join(p.dir, string(cue)+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
