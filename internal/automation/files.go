package automation

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

var folderRe = regexp.MustCompile(`create (?:a )?folder(?: (?:named|called))?\s*(.*)$`)

func folderName(cmd string) string {
	m := folderRe.FindStringSubmatch(cmd)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "New Folder"
	}
	return strings.TrimSpace(m[1])
}

func (r *Runner) createFolder(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ", "..", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Folder"
	}

	path := filepath.Join(r.desktop(), name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Warn("Failed to create folder", "path", path, "err", err)
		return fmt.Sprintf("I couldn't create the folder %s.", name)
	}
	return fmt.Sprintf("Created the folder %s on your Desktop.", name)
}

var imageExts = map[string]string{".png": "png", ".jpg": "jpg", ".jpeg": "jpg"}

type recentImage struct {
	path string
	kind string
	mod  time.Time
}

func (r *Runner) recentImages(dir string) ([]recentImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	cutoff := r.now().Add(-r.cfg.RecentWindow)

	var out []recentImage
	for _, e := range entries {
		kind, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, recentImage{path: filepath.Join(dir, e.Name()), kind: kind, mod: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mod.Before(out[j].mod) })
	return out, nil
}

func (r *Runner) pdfFromDownloads() string {
	dir := r.downloads()
	images, err := r.recentImages(dir)
	if err != nil {
		log.Warn("Failed to read downloads", "dir", dir, "err", err)
		return "I couldn't read your Downloads folder."
	}
	minutes := int(r.cfg.RecentWindow.Minutes())
	if len(images) == 0 {
		return fmt.Sprintf("There are no images in Downloads from the last %d minutes.", minutes)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pageW, pageH := pdf.GetPageSize()
	const margin = 10.0

	for _, img := range images {
		opt := fpdf.ImageOptions{ImageType: img.kind, ReadDpi: true}
		info := pdf.RegisterImageOptions(img.path, opt)
		if pdf.Err() {
			break
		}
		w, h := fit(info.Width(), info.Height(), pageW-2*margin, pageH-2*margin)
		pdf.AddPage()
		pdf.ImageOptions(img.path, (pageW-w)/2, (pageH-h)/2, w, h, false, opt, 0, "")
	}

	out := filepath.Join(dir, fmt.Sprintf("RecentDownloads_%d.pdf", r.now().Unix()))
	if err := pdf.OutputFileAndClose(out); err != nil {
		log.Warn("Failed to write pdf", "path", out, "err", err)
		return "I couldn't create the PDF."
	}
	r.show(out)
	return fmt.Sprintf("Created a PDF from %d recent images in your Downloads folder.", len(images))
}

// fit scales w x h to fit inside maxW x maxH keeping the aspect ratio.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := min(maxW/w, maxH/h)
	return w * scale, h * scale
}

var contentKinds = []string{"application", "essay", "letter", "story", "report", "speech", "email"}

func contentKind(cmd string) string {
	if !strings.Contains(cmd, "write") {
		return ""
	}
	for _, k := range contentKinds {
		if strings.Contains(cmd, k) {
			return k
		}
	}
	return ""
}

var topicLeadRe = regexp.MustCompile(`^(?:about|on|for|regarding|to)\s+`)

func contentTopic(cmd, kind string) string {
	i := strings.Index(cmd, kind)
	topic := strings.TrimSpace(cmd[i+len(kind):])
	return topicLeadRe.ReplaceAllString(topic, "")
}

func (r *Runner) writeContent(ctx context.Context, kind, topic string) string {
	prompt := fmt.Sprintf("You are an expert writer. Write %s %s", article(kind), kind)
	if topic != "" {
		prompt += " about " + topic
	}
	prompt += ". Reply with the text only."

	text, err := r.writer.Complete(ctx, prompt, 800)
	if err != nil {
		log.Warn("Content generation failed", "kind", kind, "err", err)
		return fmt.Sprintf("I couldn't write the %s right now.", kind)
	}

	path := filepath.Join(r.documents(), fileName(kind, topic, r.now())+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn("Failed to create documents dir", "err", err)
		return fmt.Sprintf("I wrote the %s but couldn't save it.", kind)
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		log.Warn("Failed to save content", "path", path, "err", err)
		return fmt.Sprintf("I wrote the %s but couldn't save it.", kind)
	}
	r.show(path)
	return fmt.Sprintf("Your %s is ready in your Documents folder.", kind)
}

func article(word string) string {
	if strings.ContainsAny(word[:1], "aeiou") {
		return "an"
	}
	return "a"
}

var nameRe = regexp.MustCompile(`[^a-z0-9]+`)

func fileName(kind, topic string, at time.Time) string {
	base := strings.Trim(nameRe.ReplaceAllString(strings.ToLower(kind+" "+topic), "_"), "_")
	if len(base) > 60 {
		base = base[:60]
	}
	return fmt.Sprintf("%s_%d", base, at.Unix())
}

func presentationTopic(cmd string) string {
	s := cmd
	for _, w := range []string{"make a", "create a", "make", "create", "ppt", "presentation", "slides"} {
		s = strings.ReplaceAll(s, w, " ")
	}
	s = topicLeadRe.ReplaceAllString(strings.TrimSpace(s), "")
	if s = strings.Join(strings.Fields(s), " "); s == "" {
		return "Topic"
	}
	return s
}

// presentation asks the writer for an outline and renders one landscape
// page per slide.
func (r *Runner) presentation(ctx context.Context, topic string) string {
	prompt := fmt.Sprintf("Write an outline for a %d-slide presentation on %s. "+
		"For each slide write a line starting with \"# \" holding the slide title, "+
		"followed by four short bullet lines starting with \"- \".", r.cfg.Slides, topic)

	outline, err := r.writer.Complete(ctx, prompt, 1200)
	if err != nil {
		log.Warn("Outline generation failed", "topic", topic, "err", err)
		return "I couldn't prepare the presentation right now."
	}

	slides := parseOutline(outline, topic)
	pdf := fpdf.New("L", "mm", "A4", "")
	for _, s := range slides {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 28)
		pdf.MultiCell(0, 14, s.title, "", "L", false)
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 18)
		for _, b := range s.bullets {
			pdf.MultiCell(0, 10, "- "+b, "", "L", false)
		}
	}

	path := filepath.Join(r.documents(), fileName("presentation", topic, r.now())+".pdf")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn("Failed to create documents dir", "err", err)
		return "I couldn't save the presentation."
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		log.Warn("Failed to write presentation", "path", path, "err", err)
		return "I couldn't save the presentation."
	}
	r.show(path)
	return fmt.Sprintf("Your presentation on %s with %d slides is ready.", topic, len(slides))
}

type slide struct {
	title   string
	bullets []string
}

func parseOutline(text, topic string) []slide {
	var slides []slide
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#"):
			slides = append(slides, slide{title: strings.TrimSpace(strings.TrimLeft(line, "#"))})
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if len(slides) == 0 {
				slides = append(slides, slide{title: topic})
			}
			last := &slides[len(slides)-1]
			last.bullets = append(last.bullets, strings.TrimSpace(line[2:]))
		}
	}
	if len(slides) == 0 {
		slides = append(slides, slide{title: topic, bullets: []string{strings.TrimSpace(text)}})
	}
	return slides
}

var whatsAppRe = regexp.MustCompile(`(?:whatsapp|send message to|message to)\s+`)

// whatsApp opens a share link with the message filled in; the user picks
// the chat.
func (r *Runner) whatsApp(cmd string) string {
	rest := whatsAppRe.ReplaceAllString(cmd, "")
	rest = strings.TrimSpace(strings.ReplaceAll(rest, "whatsapp", ""))

	contact, message := rest, ""
	if i := strings.Index(rest, "message"); i >= 0 {
		contact = strings.TrimSpace(rest[:i])
		message = strings.TrimSpace(rest[i+len("message"):])
	}
	contact = strings.TrimSpace(strings.TrimSuffix(contact, " on"))

	link := "https://web.whatsapp.com/"
	if message != "" {
		link = "https://wa.me/?text=" + url.QueryEscape(message)
	}
	if err := r.openURL(link); err != nil {
		log.Warn("Failed to open WhatsApp", "err", err)
		return "I couldn't open WhatsApp."
	}

	switch {
	case contact != "" && message != "":
		return fmt.Sprintf("Opened WhatsApp with your message. Pick %s to send it.", contact)
	case contact != "":
		return fmt.Sprintf("Opened WhatsApp. Pick %s to start chatting.", contact)
	default:
		return "Opened WhatsApp."
	}
}

// show opens path in the default viewer; failures are only logged.
func (r *Runner) show(path string) {
	if err := r.openFile(path); err != nil {
		log.Debug("Failed to open file", "path", path, "err", err)
	}
}
