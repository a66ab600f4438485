// Package intent decides which handler answers an utterance.
//
// Cheap deterministic cases are matched against a prioritized phrase table;
// only utterances that match nothing are sent to the classification
// provider. The order of rules is part of the contract and is tested.
package intent

import (
	"context"
	log "log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Intent int

const (
	GeneralChat Intent = iota
	DateTime
	Automation
	RealtimeLookup
	Control
)

func (i Intent) String() string {
	switch i {
	case DateTime:
		return "datetime"
	case Automation:
		return "automation"
	case RealtimeLookup:
		return "realtime"
	case Control:
		return "control"
	default:
		return "general"
	}
}

// DateTimeKind says which clock answer a DateTime utterance wants.
type DateTimeKind int

const (
	NotDateTime DateTimeKind = iota
	DateAndTime
	DateOnly
	TimeOnly
	DayOnly
)

// ControlAction is a playback command spoken by the user.
type ControlAction int

const (
	NoControl ControlAction = iota
	Exit
	Stop
	Resume
)

func (a ControlAction) String() string {
	switch a {
	case Exit:
		return "exit"
	case Stop:
		return "stop"
	case Resume:
		return "resume"
	default:
		return "none"
	}
}

// rule phrases match at the start of a word and may run on into a longer
// word, so "stocks" and "cryptocurrency" hit "stock" and "crypto". Phrases
// in whole must match complete words.
type rule struct {
	intent  Intent
	kind    DateTimeKind
	phrases []string
	whole   []string
}

// rules are evaluated top to bottom; the first match wins.
var rules = []rule{
	{DateTime, DateAndTime, []string{"date and time", "time and date", "day and time", "full date"}, nil},
	{DateTime, DateOnly, []string{"date", "today's date", "today date"}, nil},
	{DateTime, TimeOnly, []string{"time", "current time", "what time"}, nil},
	{DateTime, DayOnly, []string{"day", "which day", "what day", "today is"}, nil},
	// Control words end or cut off speech, so "quite" must not read as "quit".
	{Control, NotDateTime, nil, nil}, // whole filled from controlPhrases
	{Automation, NotDateTime, []string{
		"open", "launch", "close",
		"create a folder", "create folder", "create pdf from recent downloads",
		"whatsapp", "ppt", "presentation",
		"write an application", "write an essay", "write a letter", "write a story",
		"write a report", "write a speech", "write an email",
	}, nil},
	{RealtimeLookup, NotDateTime, []string{
		"weather", "news", "stock", "share price", "crypto",
		"bitcoin", "ethereum", "solana", "dogecoin", "cardano", "litecoin", "ripple",
	}, []string{"btc", "eth", "doge"}},
}

func (r rule) matches(s string) bool {
	for _, p := range r.phrases {
		if HasWordPrefix(s, p) {
			return true
		}
	}
	return containsAny(s, r.whole)
}

// controlPhrases are listed in ControlAction priority order.
var controlPhrases = []struct {
	action  ControlAction
	phrases []string
}{
	{Exit, []string{"exit", "quit", "bye", "goodbye"}},
	{Stop, []string{"stop", "pause", "mute", "be quiet"}},
	{Resume, []string{"resume", "continue"}},
}

func init() {
	for i := range rules {
		if rules[i].intent != Control {
			continue
		}
		for _, c := range controlPhrases {
			rules[i].whole = append(rules[i].whole, c.phrases...)
		}
	}
}

// Labeler is the external classification provider.
type Labeler interface {
	Label(ctx context.Context, text string) (string, error)
}

// Label prefixes returned by the provider that mean "do something".
var (
	taskLabels = []string{
		"open", "close", "play", "generate image", "reminder", "system",
		"content", "google search", "youtube search", "automation",
	}
	realtimeLabels = []string{"realtime", "real-time", "real time"}
)

type Classifier struct {
	labeler Labeler
}

// New builds a Classifier. labeler may be nil; unmatched utterances are then
// GeneralChat.
func New(labeler Labeler) *Classifier {
	return &Classifier{labeler: labeler}
}

// Classify maps text to an Intent. Provider failures fall back to
// GeneralChat.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	if in, ok := Match(text); ok {
		return in
	}
	if c.labeler == nil {
		return GeneralChat
	}

	label, err := c.labeler.Label(ctx, text)
	if err != nil {
		log.Warn("Classification failed", "err", err)
		return GeneralChat
	}
	return FromLabel(label)
}

// Match runs the deterministic rule table only.
func Match(text string) (Intent, bool) {
	low := fold(text)
	for _, r := range rules {
		if r.matches(low) {
			return r.intent, true
		}
	}
	return GeneralChat, false
}

// FromLabel maps a provider label onto an Intent by prefix.
func FromLabel(label string) Intent {
	low := fold(label)
	switch {
	case hasAnyPrefix(low, taskLabels):
		return Automation
	case hasAnyPrefix(low, realtimeLabels):
		return RealtimeLookup
	default:
		return GeneralChat
	}
}

// DateTimeKindOf reports which DateTime rule text matches.
func DateTimeKindOf(text string) DateTimeKind {
	low := fold(text)
	for _, r := range rules {
		if r.intent != DateTime {
			break
		}
		if r.matches(low) {
			return r.kind
		}
	}
	return NotDateTime
}

// ControlActionOf reports the control command in text. Exit outranks stop,
// which outranks resume.
func ControlActionOf(text string) ControlAction {
	low := fold(text)
	for _, c := range controlPhrases {
		if containsAny(low, c.phrases) {
			return c.action
		}
	}
	return NoControl
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "’", "'")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if ContainsPhrase(s, p) {
			return true
		}
	}
	return false
}

// ContainsPhrase reports whether phrase occurs in s as whole words. Both
// arguments are expected in lower case.
func ContainsPhrase(s, phrase string) bool {
	return findPhrase(s, phrase, true)
}

// HasWordPrefix reports whether phrase occurs in s starting at a word
// boundary. The end of the match may fall inside a word.
func HasWordPrefix(s, phrase string) bool {
	return findPhrase(s, phrase, false)
}

func findPhrase(s, phrase string, whole bool) bool {
	if phrase == "" {
		return false
	}
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], phrase)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(phrase)
		if boundaryBefore(s, start) && (!whole || boundaryAfter(s, end)) {
			return true
		}
		_, w := utf8.DecodeRuneInString(s[start:])
		off = start + w
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
