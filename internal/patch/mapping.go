package patch

import (
	"sort"
	"unicode/utf8"
)

// MapSpan translates the span [normStart, normEnd) of normContent, the
// normalized form of original, into byte offsets of original.
//
// The search starts from a proportional estimate and compares
// len(Normalize(original[:i])) against the normalized length of the same
// prefix of normContent, widening the window while the target is not
// bracketed. Normalization is lossy, so the result is approximate: the
// boundaries may land a few whitespace characters away from where a human
// would put them, but never inside the addressed words. Callers verify the
// span before trusting it.
func MapSpan(original, normContent string, normStart, normEnd, window int) (start, end int) {
	if len(normContent) == 0 {
		return 0, 0
	}
	ratio := float64(len(original)) / float64(len(normContent))

	startTarget := len(Normalize(normContent[:normStart]))
	endTarget := len(Normalize(normContent[:normEnd]))

	start = mapOffset(original, startTarget, int(float64(normStart)*ratio), window, true)
	end = mapOffset(original, endTarget, int(float64(normEnd)*ratio), window, false)
	if end < start {
		end = start
	}
	return start, end
}

// mapOffset finds, near estimate, the largest offset whose normalized
// prefix length is <= target (last) or the smallest whose length is >=
// target (!last). Normalized prefix length is non-decreasing in the offset,
// which is what makes the binary search valid.
func mapOffset(original string, target, estimate, window int, last bool) int {
	n := len(original)
	window = max(window, 1)
	f := func(i int) int { return len(Normalize(original[:i])) }

	lo := clamp(estimate-window, 0, n)
	hi := clamp(estimate+window, 0, n)
	for w := window; lo > 0 && f(lo) > target; w *= 2 {
		lo = max(0, lo-w)
	}
	for w := window; hi < n && f(hi) < target; w *= 2 {
		hi = min(n, hi+w)
	}

	var i int
	if last {
		i = lo + sort.Search(hi-lo+1, func(j int) bool { return f(lo+j) > target }) - 1
	} else {
		i = lo + sort.Search(hi-lo+1, func(j int) bool { return f(lo+j) >= target })
	}
	return runeStart(original, clamp(i, 0, n))
}

// runeStart moves i back to the start of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
