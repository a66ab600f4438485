package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Espeak is the offline fallback. It runs espeak-ng and reads back a WAV.
type Espeak struct {
	bin string
}

func NewEspeak() *Espeak { return &Espeak{bin: "espeak-ng"} }

func (p *Espeak) Name() string { return "espeak" }

func (p *Espeak) Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error) {
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("riya-espeak-%d.wav", time.Now().UnixNano()))
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, p.bin, espeakArgs(text, voice, outPath)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("espeak-ng: %w (output: %s)", err, output)
	}

	audio, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read espeak-ng output: %w", err)
	}

	return &Clip{Data: audio, Format: "wav"}, nil
}

const espeakBaseWPM = 175

func espeakArgs(text string, voice Voice, outPath string) []string {
	lang := voice.Lang
	if lang == "" {
		lang = "en"
	}

	args := []string{"-v", lang}
	if speed := rateToSpeed(voice.Rate); speed > 0 {
		args = append(args, "-s", strconv.Itoa(int(espeakBaseWPM*speed)))
	}
	return append(args, "-w", outPath, "--", text)
}

// rateToSpeed converts a relative rate ("-15%", "+20%") to a multiplier.
// Zero means "use the default".
func rateToSpeed(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if !strings.HasSuffix(rate, "%") {
		return 0
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(rate, "%"), 64)
	if err != nil {
		return 0
	}
	speed := 1 + pct/100
	switch {
	case speed < 0.25:
		speed = 0.25
	case speed > 4:
		speed = 4
	}
	return speed
}
