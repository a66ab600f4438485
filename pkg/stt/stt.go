// Package stt holds the transcription result types shared by transcriber
// backends, and the errors they report.
package stt

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrUnintelligible means audio was processed but held no words.
	ErrUnintelligible = errors.New("unintelligible audio")
	// ErrUnavailable means the model could not run at all.
	ErrUnavailable = errors.New("transcriber unavailable")
)

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

// whisper marks non-speech with bracketed or parenthesized tags.
var nonSpeechRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// JoinSegments concatenates segment text and drops non-speech markers such
// as "[BLANK_AUDIO]" or "(music)".
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		txt := strings.TrimSpace(nonSpeechRe.ReplaceAllString(s.Text, ""))
		if txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}
