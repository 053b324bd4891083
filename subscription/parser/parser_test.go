package parser

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Mapping(t *testing.T) {
	doc, err := Parse("port: 7890\nproxies:\n  - name: a\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"port", "proxies"}, doc.Keys())
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse(`{"proxies":[{"name":"HK-01"}]}`)
	require.NoError(t, err)
	_, ok := doc.Lookup("proxies")
	assert.True(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		empty bool
	}{
		{"empty", "", true},
		{"whitespace", "  \n\t\n", true},
		{"comment only", "# nothing here\n", true},
		{"null", "~\n", true},
		{"malformed", "proxies: [a, b\n", false},
		{"nested mapping value", "a: b: c\n", false},
		{"sequence root", "- a\n- b\n", false},
		{"scalar root", "hello\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.input)
			assert.Nil(t, doc)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.empty, errors.Is(err, ErrEmpty))
			assert.Equal(t, tt.input, pe.Snippet)
		})
	}
}

func TestParse_SnippetIsBounded(t *testing.T) {
	input := "- " + strings.Repeat("香", 2000)
	_, err := Parse(input)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, SnippetLimit, utf8.RuneCountInString(pe.Snippet))
	assert.True(t, strings.HasPrefix(input, pe.Snippet))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", Snippet("abc"))
	long := strings.Repeat("x", SnippetLimit+10)
	assert.Len(t, Snippet(long), SnippetLimit)
}
