package session

import (
	"fmt"
	"strings"
	"time"
)

// Greeting is spoken when the session starts.
func Greeting(at time.Time, user string) string {
	var part string
	switch h := at.Hour(); {
	case h >= 5 && h < 12:
		part = "Good Morning"
	case h >= 12 && h < 17:
		part = "Good Afternoon"
	default:
		part = "Good Evening"
	}
	return fmt.Sprintf("%s %s, what's your plan today?", part, user)
}

// speakable shortens long answers to their first two sentences and a
// pointer to the chat window, which always shows the full text.
func (s *Session) speakable(answer string) string {
	if s.cfg.LongAnswer <= 0 || len(answer) < s.cfg.LongAnswer {
		return answer
	}
	sentences := strings.Split(answer, ".")
	if len(sentences) <= 4 {
		return answer
	}

	head := make([]string, 0, 2)
	for _, p := range sentences[:2] {
		head = append(head, strings.TrimSpace(p))
	}
	return fmt.Sprintf("%s. The rest of the answer is on the chat screen, %s.", strings.Join(head, ". "), s.cfg.User)
}
