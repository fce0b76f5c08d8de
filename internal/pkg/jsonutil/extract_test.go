package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"object in prose", `verdict follows {"a": 1} thanks`, `{"a": 1}`, true},
		{"fenced", "```\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"fenced with language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"fenced with prose around", "here:\n```json\n{\"a\": 1}\n```\nbye", `{"a": 1}`, true},
		{"array", `[1, 2, 3]`, `[1, 2, 3]`, true},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace inside string", `{"a": "}{"}`, `{"a": "}{"}`, true},
		{"escaped quote inside string", `{"a": "say \"hi\" {"}`, `{"a": "say \"hi\" {"}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"no json", "nothing here", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.raw)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractJSON_FirstObjectWins(t *testing.T) {
	got, ok := ExtractJSON(`{"first": 1} {"second": 2}`)
	require.True(t, ok)
	assert.Equal(t, `{"first": 1}`, got)
}
