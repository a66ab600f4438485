package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name string
		segs []Segment
		want string
	}{
		{name: "empty", segs: nil, want: ""},
		{name: "blank audio only", segs: []Segment{{Text: " [BLANK_AUDIO]"}}, want: ""},
		{
			name: "joins and trims",
			segs: []Segment{{Text: " what time"}, {Text: " is it "}},
			want: "what time is it",
		},
		{
			name: "drops markers inside text",
			segs: []Segment{{Text: "(music) open chrome"}, {Text: "*coughs*"}},
			want: "open chrome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinSegments(tt.segs))
		})
	}
}
