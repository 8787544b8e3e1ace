package patch_test

import (
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/patch"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "crlf", input: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "collapse_spaces_tabs", input: "a  \t b", want: "a b"},
		{name: "strip_lines", input: "  a  \n\t b\t", want: "a\nb"},
		{name: "paragraph_kept", input: "a\n\nb", want: "a\n\nb"},
		{name: "three_newlines", input: "a\n\n\nb", want: "a\n\nb"},
		{name: "whitespace_only_lines", input: "a\n  \n \t\n\nb", want: "a\n\nb"},
		{name: "trim_block", input: "\n\n  a  \n\n", want: "a"},
		{name: "nfc", input: "Noël", want: "Noël"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := patch.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	in := "  Chapter  1 \r\n\r\n\r\n\tThe night\t was cold.  \n\n\n\nEnd"
	once := patch.Normalize(in)
	if twice := patch.Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q vs %q", once, twice)
	}
}

func TestMapSpan(t *testing.T) {
	t.Parallel()

	original := "Chapter 1\n\n\n\n   The   night was cold.   \n\nElena waited by the door."
	normContent := patch.Normalize(original)
	find := "The night was cold."
	i := strings.Index(normContent, find)
	if i < 0 {
		t.Fatalf("setup: %q not in %q", find, normContent)
	}

	start, end := patch.MapSpan(original, normContent, i, i+len(find), 50)
	if got := patch.Normalize(original[start:end]); got != find {
		t.Errorf("original[%d:%d] = %q, normalizes to %q", start, end, original[start:end], got)
	}
	if original[start] != 'T' || original[end-1] != '.' {
		t.Errorf("span [%d,%d) = %q has whitespace at its edges", start, end, original[start:end])
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"abcd", "abce", 0.75},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		if got := patch.Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
