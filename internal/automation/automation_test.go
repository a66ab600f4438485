package automation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proc struct {
	pid int
	exe string
}

func (p proc) Pid() int           { return p.pid }
func (p proc) PPid() int          { return 1 }
func (p proc) Executable() string { return p.exe }

type fakeWriter struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeWriter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type env struct {
	home    string
	started []string
	urls    []string
	files   []string
	killed  []int
	procs   []ps.Process
	onPath  map[string]bool
}

func newRunner(t *testing.T, w Writer) (*Runner, *env) {
	t.Helper()
	e := &env{home: t.TempDir(), onPath: map[string]bool{}}
	r := New(w, Config{Home: e.home})
	r.lookPath = func(file string) (string, error) {
		if e.onPath[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
	r.start = func(path string, args ...string) error {
		e.started = append(e.started, strings.TrimSpace(path+" "+strings.Join(args, " ")))
		return nil
	}
	r.openURL = func(u string) error { e.urls = append(e.urls, u); return nil }
	r.openFile = func(p string) error { e.files = append(e.files, p); return nil }
	r.processes = func() ([]ps.Process, error) { return e.procs, nil }
	r.kill = func(pid int) error { e.killed = append(e.killed, pid); return nil }
	r.now = func() time.Time { return time.Unix(1_750_000_000, 0) }
	return r, e
}

func TestAppName(t *testing.T) {
	assert.Equal(t, "chrome", appName("open the chrome app please", "open"))
	assert.Equal(t, "youtube", appName("close the youtube application", "close"))
	assert.Equal(t, "notepad++", appName("launch notepad++!", "launch"))
	assert.Equal(t, "", appName("open", "open"))
}

func TestOpen_InstalledApplication(t *testing.T) {
	r, e := newRunner(t, nil)
	e.onPath["chromium"] = true

	assert.Equal(t, "Opened chrome.", r.Run(context.Background(), "Open chrome."))
	assert.Equal(t, []string{"/usr/bin/chromium"}, e.started)
	assert.Empty(t, e.urls)
}

func TestOpen_LauncherWithArguments(t *testing.T) {
	r, e := newRunner(t, nil)
	e.onPath["libreoffice"] = true

	assert.Equal(t, "Opened word.", r.Run(context.Background(), "launch word"))
	assert.Equal(t, []string{"/usr/bin/libreoffice --writer"}, e.started)
}

func TestOpen_MissingApplicationOpensOfficialPage(t *testing.T) {
	r, e := newRunner(t, nil)

	answer := r.Run(context.Background(), "open chrome")
	assert.Contains(t, answer, "official page")
	assert.Equal(t, []string{"https://www.google.com/chrome/"}, e.urls)
}

func TestOpen_UnknownApplicationSearchesStore(t *testing.T) {
	r, e := newRunner(t, nil)

	answer := r.Run(context.Background(), "open obsidian notes")
	assert.Contains(t, answer, "Searching")
	assert.Equal(t, []string{"https://flathub.org/apps/search?q=obsidian+notes"}, e.urls)
}

func TestOpen_NoName(t *testing.T) {
	r, _ := newRunner(t, nil)
	assert.Equal(t, "Which application should I open?", r.Run(context.Background(), "open"))
}

func TestClose_KillsMatchingProcesses(t *testing.T) {
	r, e := newRunner(t, nil)
	e.procs = []ps.Process{proc{10, "chrome"}, proc{11, "bash"}, proc{12, "firefox"}, proc{13, "chrome"}}

	assert.Equal(t, "Closed chrome.", r.Run(context.Background(), "close chrome"))
	assert.Equal(t, []int{10, 13}, e.killed)
}

func TestClose_WebsiteClosesBrowsers(t *testing.T) {
	r, e := newRunner(t, nil)
	e.procs = []ps.Process{proc{10, "vim"}, proc{12, "firefox"}}

	assert.Equal(t, "Closed youtube.", r.Run(context.Background(), "Close the YouTube app."))
	assert.Equal(t, []int{12}, e.killed)
}

func TestClose_NothingRunningIsNoop(t *testing.T) {
	r, e := newRunner(t, nil)
	e.procs = []ps.Process{proc{11, "bash"}}

	assert.Equal(t, "spotify doesn't seem to be running.", r.Run(context.Background(), "close spotify"))
	assert.Empty(t, e.killed)
}

func TestClose_ProcessListFailure(t *testing.T) {
	r, _ := newRunner(t, nil)
	r.processes = func() ([]ps.Process, error) { return nil, errors.New("no /proc") }

	assert.Contains(t, r.Run(context.Background(), "close vlc"), "couldn't check")
}

func TestCreateFolder(t *testing.T) {
	r, e := newRunner(t, nil)

	assert.Equal(t, "Created the folder projects on your Desktop.", r.Run(context.Background(), "Create a folder named projects."))
	assert.DirExists(t, filepath.Join(e.home, "Desktop", "projects"))

	assert.Equal(t, "Created the folder New Folder on your Desktop.", r.Run(context.Background(), "create a folder"))
	assert.DirExists(t, filepath.Join(e.home, "Desktop", "New Folder"))
}

func TestCreateFolder_StaysOnDesktop(t *testing.T) {
	r, e := newRunner(t, nil)

	r.Run(context.Background(), "create folder ../../escape")
	assert.NoDirExists(t, filepath.Join(e.home, "escape"))
}

func writePNG(t *testing.T, path string, mod time.Time) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestPDFFromRecentDownloads(t *testing.T) {
	r, e := newRunner(t, nil)
	dir := filepath.Join(e.home, "Downloads")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	now := r.now()
	writePNG(t, filepath.Join(dir, "a.png"), now.Add(-time.Minute))
	writePNG(t, filepath.Join(dir, "b.PNG"), now.Add(-2*time.Minute))
	writePNG(t, filepath.Join(dir, "old.png"), now.Add(-time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	answer := r.Run(context.Background(), "create pdf from recent downloads")
	assert.Equal(t, "Created a PDF from 2 recent images in your Downloads folder.", answer)

	require.Len(t, e.files, 1)
	data, err := os.ReadFile(e.files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestPDFFromRecentDownloads_NoImages(t *testing.T) {
	r, e := newRunner(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(e.home, "Downloads"), 0o755))

	assert.Equal(t, "There are no images in Downloads from the last 5 minutes.",
		r.Run(context.Background(), "create pdf from recent downloads"))
}

func TestWriteContent(t *testing.T) {
	w := &fakeWriter{reply: "Climate change is real."}
	r, e := newRunner(t, w)

	answer := r.Run(context.Background(), "Write an essay about climate change.")
	assert.Equal(t, "Your essay is ready in your Documents folder.", answer)
	require.Len(t, w.prompts, 1)
	assert.Contains(t, w.prompts[0], "Write an essay about climate change")

	require.Len(t, e.files, 1)
	assert.Equal(t, filepath.Join(e.home, "Documents"), filepath.Dir(e.files[0]))
	data, err := os.ReadFile(e.files[0])
	require.NoError(t, err)
	assert.Equal(t, "Climate change is real.\n", string(data))
}

func TestWriteContent_WriterFailure(t *testing.T) {
	r, e := newRunner(t, &fakeWriter{err: errors.New("quota")})

	assert.Equal(t, "I couldn't write the letter right now.", r.Run(context.Background(), "write a letter to my landlord"))
	assert.Empty(t, e.files)
}

func TestPresentation(t *testing.T) {
	w := &fakeWriter{reply: "# Origins\n- one\n- two\n# Today\n- three"}
	r, e := newRunner(t, w)

	answer := r.Run(context.Background(), "Create a presentation on solar energy.")
	assert.Equal(t, "Your presentation on solar energy with 2 slides is ready.", answer)
	assert.Contains(t, w.prompts[0], "5-slide presentation on solar energy")
	require.Len(t, e.files, 1)
	assert.Equal(t, ".pdf", filepath.Ext(e.files[0]))
}

func TestParseOutline(t *testing.T) {
	slides := parseOutline("Intro text\n- stray\n## Second\n* b1\n", "Go")
	require.Len(t, slides, 2)
	assert.Equal(t, slide{title: "Go", bullets: []string{"stray"}}, slides[0])
	assert.Equal(t, slide{title: "Second", bullets: []string{"b1"}}, slides[1])

	slides = parseOutline("just prose", "Go")
	assert.Equal(t, []slide{{title: "Go", bullets: []string{"just prose"}}}, slides)
}

func TestWhatsApp(t *testing.T) {
	r, e := newRunner(t, nil)

	answer := r.Run(context.Background(), "WhatsApp mom message running late")
	assert.Equal(t, "Opened WhatsApp with your message. Pick mom to send it.", answer)
	assert.Equal(t, []string{"https://wa.me/?text=running+late"}, e.urls)

	answer = r.Run(context.Background(), "send message to dad on whatsapp")
	assert.Equal(t, "Opened WhatsApp. Pick dad to start chatting.", answer)
}

func TestRun_Unrecognized(t *testing.T) {
	r, _ := newRunner(t, nil)
	assert.Equal(t, "Sorry, I don't know how to do that yet.", r.Run(context.Background(), "reticulate splines"))
}
