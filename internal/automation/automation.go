// Package automation carries out desktop commands spoken by the user:
// opening and closing applications, creating folders and documents, and
// handing messages to WhatsApp.
//
// Run never fails. Every outcome, including errors, comes back as a
// sentence that can be spoken.
package automation

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/pkg/browser"

	"riya/internal/intent"
)

// Writer produces text for the content and presentation commands.
type Writer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Config struct {
	Home         string        // defaults to the user's home directory
	RecentWindow time.Duration // age limit for "pdf from recent downloads"
	Slides       int           // slides per generated presentation
}

type Runner struct {
	writer Writer
	cfg    Config

	lookPath  func(file string) (string, error)
	start     func(path string, args ...string) error
	openURL   func(url string) error
	openFile  func(path string) error
	processes func() ([]ps.Process, error)
	kill      func(pid int) error
	now       func() time.Time
}

func New(writer Writer, cfg Config) *Runner {
	if cfg.Home == "" {
		cfg.Home, _ = os.UserHomeDir()
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 5 * time.Minute
	}
	if cfg.Slides <= 0 {
		cfg.Slides = 5
	}
	return &Runner{
		writer:    writer,
		cfg:       cfg,
		lookPath:  exec.LookPath,
		start:     startDetached,
		openURL:   browser.OpenURL,
		openFile:  browser.OpenFile,
		processes: ps.Processes,
		kill:      terminate,
		now:       time.Now,
	}
}

// Run executes the command in text. Commands are matched in a fixed order:
// folder, pdf, close, content, presentation, whatsapp, open.
func (r *Runner) Run(ctx context.Context, text string) string {
	cmd := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!?"))
	log.Info("Automation", "cmd", cmd)

	var answer string
	switch {
	case intent.ContainsPhrase(cmd, "create a folder") || intent.ContainsPhrase(cmd, "create folder"):
		answer = r.createFolder(folderName(cmd))
	case intent.ContainsPhrase(cmd, "create pdf from recent downloads"):
		answer = r.pdfFromDownloads()
	case intent.ContainsPhrase(cmd, "close") || intent.ContainsPhrase(cmd, "shut"):
		answer = r.closeApp(appName(cmd, "close", "shut down", "shut", "turn off", "kill"))
	case contentKind(cmd) != "":
		kind := contentKind(cmd)
		answer = r.writeContent(ctx, kind, contentTopic(cmd, kind))
	case intent.ContainsPhrase(cmd, "ppt") || intent.ContainsPhrase(cmd, "presentation"):
		answer = r.presentation(ctx, presentationTopic(cmd))
	case intent.ContainsPhrase(cmd, "whatsapp"):
		answer = r.whatsApp(cmd)
	case intent.ContainsPhrase(cmd, "open") || intent.ContainsPhrase(cmd, "launch"):
		answer = r.openApp(appName(cmd, "open", "launch", "start"))
	default:
		answer = "Sorry, I don't know how to do that yet."
	}

	log.Debug("Automation done", "answer", answer)
	return answer
}

func (r *Runner) desktop() string   { return filepath.Join(r.cfg.Home, "Desktop") }
func (r *Runner) downloads() string { return filepath.Join(r.cfg.Home, "Downloads") }
func (r *Runner) documents() string { return filepath.Join(r.cfg.Home, "Documents") }

func startDetached(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
