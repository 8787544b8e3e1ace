package patch

import (
	udiff "github.com/aymanbagabas/go-udiff"
)

// Similarity returns 2·M/(|a|+|b|) where M is the number of bytes the two
// strings share along an edit script. Identical strings score 1; two empty
// strings also score 1.
func Similarity(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	if a == b {
		return 1
	}
	matched := len(a)
	for _, e := range udiff.Strings(a, b) {
		matched -= e.End - e.Start
	}
	return 2 * float64(matched) / float64(total)
}

// histogram counts byte occurrences.
type histogram [256]int

func newHistogram(s string) histogram {
	var h histogram
	for i := 0; i < len(s); i++ {
		h[s[i]]++
	}
	return h
}

// quickRatio is an upper bound on Similarity computed from byte counts
// alone. Windows whose bound is below the best score so far are skipped.
func quickRatio(find histogram, findLen int, window string) float64 {
	total := findLen + len(window)
	if total == 0 {
		return 1
	}
	w := newHistogram(window)
	common := 0
	for c := range w {
		common += min(w[c], find[c])
	}
	return 2 * float64(common) / float64(total)
}

// Diff renders a unified diff between before and after, labelled with path.
func Diff(path, before, after string) string {
	return udiff.Unified("a/"+path, "b/"+path, before, after)
}
