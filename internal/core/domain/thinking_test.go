package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no block", input: "The answer is 42.", want: "The answer is 42."},
		{name: "leading block", input: "<think>hmm, let me see</think>\nThe answer is 42.", want: "The answer is 42."},
		{name: "multiline block", input: "<think>\nline one\nline two\n</think>Done", want: "Done"},
		{name: "two blocks", input: "<think>a</think>x <think>b</think>y", want: "x y"},
		{name: "unterminated", input: "Sure. <think>still thinking", want: "Sure."},
		{name: "only thinking", input: "<think>nothing else</think>", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripThinking(tc.input))
		})
	}
}
