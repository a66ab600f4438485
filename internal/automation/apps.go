package automation

import (
	"fmt"
	log "log/slog"
	"net/url"
	"regexp"
	"strings"
)

// launchers lists executables tried for a spoken application name.
var launchers = map[string][]string{
	"chrome":        {"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"},
	"google chrome": {"google-chrome", "google-chrome-stable", "chromium"},
	"firefox":       {"firefox"},
	"edge":          {"microsoft-edge", "microsoft-edge-stable"},
	"vlc":           {"vlc"},
	"spotify":       {"spotify"},
	"code":          {"code", "codium"},
	"vs code":       {"code", "codium"},
	"terminal":      {"x-terminal-emulator", "gnome-terminal", "konsole", "foot", "alacritty"},
	"files":         {"nautilus", "dolphin", "thunar"},
	"calculator":    {"gnome-calculator", "kcalc", "qalculate-gtk"},
	"notepad":       {"gedit", "gnome-text-editor", "kate", "mousepad"},
	"word":          {"libreoffice --writer"},
	"excel":         {"libreoffice --calc"},
	"powerpoint":    {"libreoffice --impress"},
	"telegram":      {"telegram-desktop"},
	"zoom":          {"zoom"},
	"teams":         {"teams-for-linux"},
}

// siteLinks are opened when an application is not installed, or is a
// website to begin with.
var siteLinks = []struct{ name, url string }{
	{"youtube", "https://www.youtube.com/"},
	{"jiohotstar", "https://www.hotstar.com/in"},
	{"hotstar", "https://www.hotstar.com/in"},
	{"whatsapp", "https://web.whatsapp.com/"},
	{"gmail", "https://mail.google.com/"},
	{"chrome", "https://www.google.com/chrome/"},
	{"firefox", "https://www.mozilla.org/firefox/new/"},
	{"edge", "https://www.microsoft.com/edge"},
	{"vlc", "https://www.videolan.org/vlc/"},
	{"spotify", "https://www.spotify.com/download/linux/"},
	{"zoom", "https://zoom.us/download"},
	{"teams", "https://www.microsoft.com/microsoft-teams/download-app"},
	{"telegram", "https://desktop.telegram.org/"},
	{"word", "https://www.microsoft.com/microsoft-365/word"},
	{"excel", "https://www.microsoft.com/microsoft-365/excel"},
	{"powerpoint", "https://www.microsoft.com/microsoft-365/powerpoint"},
}

// browsers host tab-only "applications" such as YouTube.
var browsers = []string{"chrome", "google-chrome", "chromium", "firefox", "msedge", "microsoft-edge"}

var processNames = map[string][]string{
	"youtube":    browsers,
	"yt":         browsers,
	"hotstar":    browsers,
	"jiohotstar": browsers,
	"chrome":     {"chrome", "google-chrome", "chromium"},
	"edge":       {"msedge", "microsoft-edge"},
	"firefox":    {"firefox"},
	"word":       {"soffice.bin"},
	"excel":      {"soffice.bin"},
	"powerpoint": {"soffice.bin"},
	"ppt":        {"soffice.bin"},
	"notepad":    {"gedit", "gnome-text-editor", "kate", "mousepad"},
	"vlc":        {"vlc"},
	"spotify":    {"spotify"},
	"zoom":       {"zoom"},
	"teams":      {"teams-for-linux"},
	"whatsapp":   {"whatsapp-for-linux", "whatsdesk"},
	"telegram":   {"telegram-desktop"},
}

var (
	nonNameRe = regexp.MustCompile(`[^a-z0-9+.\s]`)
	fillers   = map[string]bool{"the": true, "a": true, "an": true, "app": true, "application": true, "please": true, "my": true}
)

// appName strips the command verbs and filler words from cmd.
func appName(cmd string, verbs ...string) string {
	s := " " + cmd + " "
	for _, v := range verbs {
		s = strings.ReplaceAll(s, " "+v+" ", " ")
	}
	s = nonNameRe.ReplaceAllString(s, " ")

	var words []string
	for _, w := range strings.Fields(s) {
		if !fillers[w] {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

func (r *Runner) openApp(name string) string {
	if name == "" {
		return "Which application should I open?"
	}

	for _, candidate := range r.executables(name) {
		fields := strings.Fields(candidate)
		path, err := r.lookPath(fields[0])
		if err != nil {
			continue
		}
		if err := r.start(path, fields[1:]...); err != nil {
			log.Warn("Failed to start application", "app", name, "path", path, "err", err)
			return fmt.Sprintf("I found %s but could not start it.", name)
		}
		return fmt.Sprintf("Opened %s.", name)
	}

	if link := siteLink(name); link != "" {
		if err := r.openURL(link); err != nil {
			log.Warn("Failed to open link", "url", link, "err", err)
			return fmt.Sprintf("%s is not installed and I could not open a browser.", name)
		}
		return fmt.Sprintf("%s is not installed here. Opening its official page.", name)
	}

	search := "https://flathub.org/apps/search?q=" + url.QueryEscape(name)
	if err := r.openURL(search); err != nil {
		log.Warn("Failed to open link", "url", search, "err", err)
		return fmt.Sprintf("I couldn't find %s.", name)
	}
	return fmt.Sprintf("%s is not installed here. Searching the app store for it.", name)
}

// executables returns launcher candidates for name, most specific first.
func (r *Runner) executables(name string) []string {
	var out []string
	if l, ok := launchers[name]; ok {
		out = append(out, l...)
	}
	for key, l := range launchers {
		if key != name && strings.Contains(name, key) {
			out = append(out, l...)
		}
	}
	return append(out, strings.ReplaceAll(name, " ", "-"), strings.ReplaceAll(name, " ", ""))
}

func siteLink(name string) string {
	for _, s := range siteLinks {
		if strings.Contains(name, s.name) {
			return s.url
		}
	}
	return ""
}

// closeApp terminates running processes that match name. It is best-effort:
// when nothing matches it says so and does nothing.
func (r *Runner) closeApp(name string) string {
	if name == "" {
		return "Which application should I close?"
	}

	targets := []string{strings.ReplaceAll(name, " ", "")}
	for key, procs := range processNames {
		if strings.Contains(name, key) {
			targets = procs
			break
		}
	}

	procs, err := r.processes()
	if err != nil {
		log.Warn("Failed to list processes", "err", err)
		return fmt.Sprintf("I couldn't check whether %s is running.", name)
	}

	var closed, failed int
	for _, p := range procs {
		if !matchesAny(p.Executable(), targets) {
			continue
		}
		if err := r.kill(p.Pid()); err != nil {
			log.Warn("Failed to terminate", "pid", p.Pid(), "exe", p.Executable(), "err", err)
			failed++
			continue
		}
		closed++
	}

	switch {
	case closed > 0:
		return fmt.Sprintf("Closed %s.", name)
	case failed > 0:
		return fmt.Sprintf("I tried to close %s but it refused.", name)
	default:
		return fmt.Sprintf("%s doesn't seem to be running.", name)
	}
}

func matchesAny(exe string, targets []string) bool {
	exe = strings.ToLower(strings.TrimSuffix(exe, ".exe"))
	for _, t := range targets {
		if exe == strings.ToLower(t) {
			return true
		}
	}
	return false
}
