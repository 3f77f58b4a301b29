package narrate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// LocalConfig controls the system speech backend.
type LocalConfig struct {
	// CLI is the speech binary: "say" (macOS), "espeak-ng" or "spd-say".
	CLI string
}

// LocalBackend shells out to a system text-to-speech binary. Every Speak
// runs one ephemeral process; the underlying speech engine needs its
// per-call setup and teardown, so calls are never queued against each
// other and rapid bursts overlap in real time.
type LocalBackend struct {
	cli string
}

func NewLocalBackend(cfg LocalConfig) (*LocalBackend, error) {
	cli := strings.TrimSpace(cfg.CLI)
	if cli == "" {
		for _, candidate := range []string{"say", "espeak-ng", "spd-say"} {
			if _, err := exec.LookPath(candidate); err == nil {
				cli = candidate
				break
			}
		}
	}
	if cli == "" {
		return nil, fmt.Errorf("no system speech binary found (tried say, espeak-ng, spd-say)")
	}
	if _, err := exec.LookPath(cli); err != nil {
		return nil, fmt.Errorf("speech binary %q not found: %w", cli, err)
	}
	return &LocalBackend{cli: cli}, nil
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) DefaultVoice() string { return "" }

func (b *LocalBackend) Speak(ctx context.Context, text, voiceID string) error {
	args := b.speakArgs(text, voiceID)
	cmd := exec.CommandContext(ctx, b.cli, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (%s)", b.cli, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (b *LocalBackend) speakArgs(text, voiceID string) []string {
	var args []string
	if voiceID != "" {
		switch baseName(b.cli) {
		case "say":
			args = append(args, "-v", voiceID)
		case "espeak-ng", "espeak":
			args = append(args, "-v", voiceID)
		case "spd-say":
			args = append(args, "-y", voiceID)
		}
	}
	return append(args, text)
}

// Voices enumerates the installed system voices. The catalog is static
// for a given machine, so display name and internal id coincide.
func (b *LocalBackend) Voices(ctx context.Context) ([]Voice, error) {
	var out []byte
	var err error
	col := 0
	switch baseName(b.cli) {
	case "say":
		out, err = exec.CommandContext(ctx, b.cli, "-v", "?").Output()
	case "espeak-ng", "espeak":
		// Columns: Pty Language Age/Gender VoiceName File. The
		// language tag is what -v accepts.
		out, err = exec.CommandContext(ctx, b.cli, "--voices").Output()
		col = 1
	case "spd-say":
		out, err = exec.CommandContext(ctx, b.cli, "-L").Output()
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s voices: %w", b.cli, err)
	}
	return parseVoiceList(out, col), nil
}

// parseVoiceList takes the given column of each non-header line as the
// voice name.
func parseVoiceList(out []byte, col int) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) <= col {
			continue
		}
		// espeak-ng and spd-say print a header row.
		if first && (fields[0] == "Pty" || fields[0] == "NAME") {
			first = false
			continue
		}
		first = false
		name := fields[col]
		voices = append(voices, Voice{DisplayName: name, ID: name})
	}
	return voices
}

func baseName(cli string) string {
	if i := strings.LastIndexByte(cli, '/'); i >= 0 {
		return cli[i+1:]
	}
	return cli
}
