package audio

import (
	"context"
	"io"
	log "log/slog"
	"sync"
	"time"

	"riya/pkg/audioconv"
)

// FileSource replays recorded audio files as if spoken into the
// microphone, one file per phrase, then reports io.EOF.
type FileSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewFileSource(files []string) *FileSource {
	return &FileSource{files: files}
}

func (f *FileSource) Record(ctx context.Context, _, phraseLimit time.Duration) ([]float32, error) {
	f.mu.Lock()
	if f.next >= len(f.files) {
		f.mu.Unlock()
		return nil, io.EOF
	}
	path := f.files[f.next]
	f.next++
	f.mu.Unlock()

	opt := audioconv.Options{}
	if phraseLimit > 0 {
		opt.MaxSamples = int(phraseLimit.Seconds() * audioconv.TargetRate)
	}

	pcm, err := audioconv.ConvertFile(ctx, path, opt)
	if err != nil {
		return nil, err
	}
	log.Debug("Replayed file", "path", path, "samples", len(pcm))
	return pcm, nil
}
