package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type fakeLabeler struct {
	label string
	err   error
	calls int
}

func (f *fakeLabeler) Label(context.Context, string) (string, error) {
	f.calls++
	return f.label, f.err
}

func TestClassify_FastPath(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"What time is it?", DateTime},
		{"What's today's date?", DateTime},
		{"Which day is it today?", DateTime},
		{"Tell me the date and time.", DateTime},
		{"Stop.", Control},
		{"Please be quiet.", Control},
		{"Resume.", Control},
		{"Bye.", Control},
		{"Open chrome.", Automation},
		{"Create a folder projects.", Automation},
		{"Create pdf from recent downloads.", Automation},
		{"Make a presentation on solar energy.", Automation},
		{"Write an essay about rivers.", Automation},
		{"Weather in Paris.", RealtimeLookup},
		{"What is the price of bitcoin?", RealtimeLookup},
		{"Latest news about AI.", RealtimeLookup},
		{"Stock price of tesla.", RealtimeLookup},
		{"Show me the top stocks.", RealtimeLookup},
		{"How is the cryptocurrency market?", RealtimeLookup},
		{"Any weather warnings?", RealtimeLookup},
		{"Make two presentations on tea.", Automation},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			lab := &fakeLabeler{label: "general"}
			got := New(lab).Classify(context.Background(), tc.text)
			assert.Equal(t, tc.want, got)
			assert.Zero(t, lab.calls, "provider must not be called on the fast path")
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	// date/time outranks control
	assert.Equal(t, DateTime, c.Classify(ctx, "Stop telling me the time."))
	// control outranks automation
	assert.Equal(t, Control, c.Classify(ctx, "Stop and open chrome."))
	// automation outranks realtime
	assert.Equal(t, Automation, c.Classify(ctx, "Open the weather app."))
	// both lookups still classify as realtime
	assert.Equal(t, RealtimeLookup, c.Classify(ctx, "Weather in Paris and stock price of apple."))
}

func TestClassify_WordBoundaries(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	// keywords must start a word
	assert.Equal(t, GeneralChat, c.Classify(ctx, "Sometimes I update my records."))
	assert.Equal(t, GeneralChat, c.Classify(ctx, "Is the ethernet cable enclosed?"))
	// control words and coin symbols must be whole words
	assert.Equal(t, GeneralChat, c.Classify(ctx, "That was quite good."))
	assert.Equal(t, GeneralChat, c.Classify(ctx, "Is ethics a science?"))
	assert.Equal(t, RealtimeLookup, c.Classify(ctx, "What is eth at?"))
}

func TestClassify_ProviderFallback(t *testing.T) {
	tests := []struct {
		label string
		err   error
		want  Intent
	}{
		{"general (how are you)", nil, GeneralChat},
		{"Open spotify", nil, Automation},
		{"content write a poem", nil, Automation},
		{"google search golang", nil, Automation},
		{"realtime who won the match", nil, RealtimeLookup},
		{"", nil, GeneralChat},
		{"open", errors.New("rate limited"), GeneralChat},
	}

	for _, tc := range tests {
		lab := &fakeLabeler{label: tc.label, err: tc.err}
		got := New(lab).Classify(context.Background(), "Tell me something interesting.")
		assert.Equal(t, tc.want, got, "label %q", tc.label)
		assert.Equal(t, 1, lab.calls)
	}
}

func TestDateTimeKindOf(t *testing.T) {
	assert.Equal(t, DateAndTime, DateTimeKindOf("give me the full date"))
	assert.Equal(t, DateOnly, DateTimeKindOf("What is the date?"))
	assert.Equal(t, TimeOnly, DateTimeKindOf("what time is it"))
	assert.Equal(t, DayOnly, DateTimeKindOf("What day is it?"))
	assert.Equal(t, NotDateTime, DateTimeKindOf("open chrome"))
}

func TestControlActionOf(t *testing.T) {
	assert.Equal(t, Exit, ControlActionOf("okay bye"))
	assert.Equal(t, Exit, ControlActionOf("stop and quit"))
	assert.Equal(t, Stop, ControlActionOf("Pause."))
	assert.Equal(t, Stop, ControlActionOf("stop, then continue"))
	assert.Equal(t, Resume, ControlActionOf("Continue."))
	assert.Equal(t, NoControl, ControlActionOf("unstoppable"))
}

func TestHasWordPrefix(t *testing.T) {
	assert.True(t, HasWordPrefix("top stocks", "stock"))
	assert.True(t, HasWordPrefix("the cryptocurrency market", "crypto"))
	assert.True(t, HasWordPrefix("stock", "stock"))
	assert.False(t, HasWordPrefix("livestock prices", "stock"))
	assert.False(t, HasWordPrefix("anything", ""))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("open chrome", "open"))
	assert.True(t, ContainsPhrase("please, open.", "open"))
	assert.True(t, ContainsPhrase("reopen then open", "open"))
	assert.False(t, ContainsPhrase("reopen", "open"))
	assert.False(t, ContainsPhrase("opening", "open"))
	assert.True(t, ContainsPhrase("create a folder now", "create a folder"))
	assert.False(t, ContainsPhrase("anything", ""))
}

func TestClassify_IsDeterministic(t *testing.T) {
	c := New(nil)
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-z ,.?']{0,40}`).Draw(t, "text")
		a := c.Classify(context.Background(), text)
		b := c.Classify(context.Background(), text)
		if a != b {
			t.Fatalf("classify(%q) = %v then %v", text, a, b)
		}
		if in, ok := Match(text); ok && in != a {
			t.Fatalf("fast path %v disagrees with classify %v", in, a)
		}
	})
}
