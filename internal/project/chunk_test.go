package project_test

import (
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/project"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return strings.Join(w, " ")
}

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []int // word count per chunk
	}{
		{name: "blank", text: "  \n ", size: 10, overlap: 2, want: nil},
		{name: "short text whole", text: words(10), size: 10, overlap: 2, want: []int{10}},
		{name: "overlapping windows", text: words(25), size: 10, overlap: 2, want: []int{10, 10, 9}},
		{name: "exact fit no tail", text: words(18), size: 10, overlap: 2, want: []int{10, 10}},
		{name: "overlap too large", text: words(20), size: 10, overlap: 10, want: []int{10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := project.Chunk(tt.text, tt.size, tt.overlap)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(got), len(tt.want))
			}
			for i, c := range got {
				if n := len(strings.Fields(c)); n != tt.want[i] {
					t.Errorf("chunk %d has %d words, want %d", i, n, tt.want[i])
				}
			}
		})
	}
}

func TestChunk_ShortTextUnmodified(t *testing.T) {
	t.Parallel()

	text := "Elena waited.\n\n  The night was warm."
	got := project.Chunk(text, project.DefaultChunkWords, project.DefaultChunkOverlap)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Chunk = %q, want the original text", got)
	}
}
