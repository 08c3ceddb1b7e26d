package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssuesIsBetterThan(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Issues
		aWins bool
	}{
		{
			name:  "comment beats no comment",
			a:     Issues{Evading: true, TooShort: true, Comment: "some text"},
			b:     Issues{},
			aWins: true,
		},
		{
			name:  "no comment loses to comment",
			a:     Issues{},
			b:     Issues{Comment: "some text"},
			aWins: false,
		},
		{
			name:  "fewer flags wins",
			a:     Issues{TooShort: true, Comment: "a"},
			b:     Issues{Evading: true, TooShort: true, Comment: "b"},
			aWins: true,
		},
		{
			name:  "more flags loses",
			a:     Issues{Evading: true, TooShort: true, Comment: "a"},
			b:     Issues{TooShort: true, Comment: "b"},
			aWins: false,
		},
		{
			name:  "tie keeps first seen",
			a:     Issues{Evading: true, Comment: "a"},
			b:     Issues{TooShort: true, Comment: "b"},
			aWins: false,
		},
		{
			name:  "zero value tie",
			a:     Issues{},
			b:     Issues{},
			aWins: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.aWins, tt.a.isBetterThan(tt.b))
		})
	}
}

func TestIssuesSummarize(t *testing.T) {
	assert.Contains(t, Issues{}.Summarize(), "no comments from OP at all")
	assert.Contains(t, Issues{Comment: "c", Evading: true, TooShort: true}.Summarize(), "too short")
	assert.Contains(t, Issues{Comment: "c", Evading: true}.Summarize(), "no routine")
	assert.Contains(t, Issues{Comment: "c", TooShort: true}.Summarize(), "too short")
}
