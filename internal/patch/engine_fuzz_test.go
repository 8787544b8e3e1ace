package patch_test

import (
	"testing"

	"github.com/catonblt/novelbuddies/internal/patch"
)

func FuzzApply(f *testing.F) {
	f.Add("Elena is 32 years old.\n\nShe lives in Paris.", "Elena is 32 years old.", "Elena is 34 years old.")
	f.Add("The rain fell.  \n\n\nOn the roofs.", "The rain fell.\nOn the roofs.", "Snow.")
	f.Add("été à Noël", "ete a Noel", "hiver")
	f.Add("", "anything", "x")
	f.Add("short", "", "x")
	f.Add("\xff\xfe broken", "\xfe bro", "ok")

	engine := patch.NewEngine(patch.Config{})
	f.Fuzz(func(t *testing.T, content, find, replace string) {
		res, err := engine.Apply(content, find, replace)
		if err != nil {
			if res.Content != content {
				t.Fatalf("failed apply changed content: %q -> %q", content, res.Content)
			}
			return
		}
		m := res.Match
		if m.Start < 0 || m.End < m.Start || m.End > len(content) {
			t.Fatalf("match [%d,%d) out of range for %d bytes", m.Start, m.End, len(content))
		}
		if want := content[:m.Start] + replace + content[m.End:]; res.Content != want {
			t.Fatalf("content outside the match changed")
		}
	})
}
