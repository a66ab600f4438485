package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Edge synthesizes through the edge-tts CLI (pip install edge-tts).
// Output is always MP3.
type Edge struct {
	bin     string
	timeout time.Duration
}

func NewEdge(timeout time.Duration) *Edge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Edge{bin: "edge-tts", timeout: timeout}
}

func (p *Edge) Name() string { return "edge" }

func (p *Edge) Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error) {
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("riya-tts-%d.mp3", time.Now().UnixNano()))
	defer os.Remove(outPath)

	cmdCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, p.bin, edgeArgs(text, voice, outPath)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("edge-tts: %w (output: %s)", err, output)
	}

	audio, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read edge-tts output: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("edge-tts produced no audio")
	}

	return &Clip{Data: audio, Format: "mp3"}, nil
}

// edgeArgs builds the CLI arguments. Signed values use the --flag=value
// form, otherwise "-15%" is parsed as an option.
func edgeArgs(text string, voice Voice, outPath string) []string {
	name := voice.Name
	if name == "" {
		name = "en-US-JennyNeural"
	}

	args := []string{"--voice", name}
	if voice.Rate != "" {
		args = append(args, "--rate="+voice.Rate)
	}
	if voice.Pitch != "" {
		args = append(args, "--pitch="+voice.Pitch)
	}
	return append(args, "--text="+text, "--write-media", outPath)
}
