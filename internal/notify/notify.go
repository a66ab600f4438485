// Package notify signals listening state: a short chime through the
// speaker and a desktop notification.
package notify

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"riya/internal/tts"
)

// CuePlayer plays a short clip without overlapping speech. *tts.Engine
// implements it.
type CuePlayer interface {
	PlayCue(ctx context.Context, clip *tts.Clip) error
}

// Notifier is safe to use with a nil player or chime; those parts are then
// skipped.
type Notifier struct {
	app   string
	out   CuePlayer
	chime *tts.Clip
	run   func(ctx context.Context, name string, args ...string) error
}

// New builds a Notifier. chimePath may be empty; otherwise it names an mp3
// or wav file played by Chime.
func New(app string, out CuePlayer, chimePath string) (*Notifier, error) {
	n := &Notifier{app: app, out: out, run: notifySend}
	if chimePath == "" {
		return n, nil
	}

	data, err := os.ReadFile(chimePath)
	if err != nil {
		return nil, fmt.Errorf("load chime: %w", err)
	}
	n.chime = &tts.Clip{Data: data, Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(chimePath)), ".")}
	return n, nil
}

// Chime waits for any speech to end, then plays the chime.
func (n *Notifier) Chime(ctx context.Context) {
	if n.out == nil || n.chime == nil {
		return
	}
	if err := n.out.PlayCue(ctx, n.chime); err != nil {
		log.Warn("Failed to play chime", "err", err)
	}
}

// Desktop shows msg as a desktop notification.
func (n *Notifier) Desktop(ctx context.Context, msg string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := n.run(ctx, "notify-send", "--app-name", n.app, "--expire-time", "2000", n.app, msg); err != nil {
		log.Debug("Desktop notification failed", "err", err)
	}
}

func notifySend(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
