package tts

import (
	"regexp"
	"strings"
)

// Emoji and pictograph blocks that synthesizers read out as names or noise.
var glyphRe = regexp.MustCompile(`[` +
	`\x{1F600}-\x{1F64F}` + // emoticons
	`\x{1F300}-\x{1F5FF}` + // symbols & pictographs
	`\x{1F680}-\x{1F6FF}` + // transport & map
	`\x{1F1E0}-\x{1F1FF}` + // flags
	`\x{2600}-\x{26FF}` + // misc symbols
	`\x{2700}-\x{27BF}` + // dingbats
	`\x{1F900}-\x{1F9FF}` + // supplemental symbols
	`\x{1FA70}-\x{1FAFF}` + // symbols extended-A
	`\x{FE0F}\x{200D}` + // variation selector, zero-width joiner
	`]+`)

var spaceRe = regexp.MustCompile(`[ \t]{2,}`)

// CleanForSpeech removes glyphs that should be seen but not heard.
func CleanForSpeech(text string) string {
	out := glyphRe.ReplaceAllString(text, "")
	out = spaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
