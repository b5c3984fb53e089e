package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"name\": \"Taco Loco\"}\n```",
			expected: `{"name": "Taco Loco"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"name\": \"Taco Loco\"}\n```",
			expected: `{"name": "Taco Loco"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"name": "Taco Loco"}`,
			expected: `{"name": "Taco Loco"}`,
		},
		{
			name:     "preamble and trailing text",
			input:    "Here is the truck:\n{\"name\": \"Taco Loco\"}\nLet me know!",
			expected: `{"name": "Taco Loco"}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"description": "Tacos {and} more", "menu": []}`,
			expected: `{"description": "Tacos {and} more", "menu": []}`,
		},
		{
			name:     "escaped quotes",
			input:    `Result: {"name": "The \"Big\" Truck"}`,
			expected: `{"name": "The \"Big\" Truck"}`,
		},
		{
			name:     "array",
			input:    "Items: [\"a\", \"b\"]",
			expected: `["a", "b"]`,
		},
		{
			name:     "unterminated object returned as-is",
			input:    `{"name": "Taco`,
			expected: `{"name": "Taco`,
		},
		{
			name:     "no JSON",
			input:    "nothing here",
			expected: "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "short", truncateRunes("short", 10))
	// "é" is two bytes; cutting in the middle backs off to the rune start
	assert.Equal(t, "a", truncateRunes("aé", 2))
}
