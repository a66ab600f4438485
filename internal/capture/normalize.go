package capture

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// interrogatives open a question. Multi-word entries match as a phrase.
var interrogatives = []string{
	"how", "what", "who", "where", "when", "why", "which", "whose", "whom",
	"can you",
	"what's", "where's", "how's", "who's", "when's", "why's",
	"what're", "who're", "how'd", "what'd", "where'd",
}

// Normalize trims text, terminates it with '?' or '.' and capitalizes the
// first rune. Text already ending in '.', '?' or '!' keeps its punctuation.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if !hasTerminal(text) {
		if IsQuestion(text) {
			text += "?"
		} else {
			text += "."
		}
	}

	return capitalize(text)
}

// IsQuestion reports whether text opens with an interrogative word.
func IsQuestion(text string) bool {
	low := strings.ToLower(strings.TrimSpace(text))
	low = strings.ReplaceAll(low, "’", "'")

	for _, q := range interrogatives {
		if !strings.HasPrefix(low, q) {
			continue
		}
		rest := low[len(q):]
		if rest == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' {
			return true
		}
	}
	return false
}

func hasTerminal(text string) bool {
	switch text[len(text)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

func capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
