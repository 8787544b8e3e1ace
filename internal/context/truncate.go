package ctxengine

import "unicode/utf8"

// TruncationMarker separates the kept head and tail of a truncated file.
const TruncationMarker = "\n\n[... content truncated for token budget ...]\n\n"

// minTruncateCeiling is the smallest budget worth truncating into.
const minTruncateCeiling = 100

// Truncate shortens content to at most maxTokens as measured by est. It
// keeps the first 60% and the last 20% of an approximate character budget
// joined by TruncationMarker, shrinking until the estimator agrees. Content
// that already fits is returned unchanged, so Truncate is idempotent.
// Ceilings below 100 tokens yield "".
func Truncate(content string, maxTokens int, est TokenEstimator) string {
	if est.Estimate(content) <= maxTokens {
		return content
	}
	if maxTokens < minTruncateCeiling {
		return ""
	}

	for target := maxTokens * 4; target > 0; target = target * 3 / 4 {
		head := target * 6 / 10
		tail := target * 2 / 10

		var out string
		if head <= len(TruncationMarker) {
			out = suffix(content, target)
		} else {
			out = prefix(content, head) + TruncationMarker + suffix(content, tail)
		}
		if est.Estimate(out) <= maxTokens {
			return out
		}
	}
	return ""
}

// Shrink is Truncate without the minimum ceiling. When Truncate gives up,
// content is cut to the longest leading part that fits. It returns "" only
// when not even one rune fits in maxTokens.
func Shrink(content string, maxTokens int, est TokenEstimator) string {
	if out := Truncate(content, maxTokens, est); out != "" || maxTokens <= 0 {
		return out
	}
	for target := maxTokens * 4; target > 0; target = target * 3 / 4 {
		if out := prefix(content, target); out != "" && est.Estimate(out) <= maxTokens {
			return out
		}
	}
	return ""
}

// prefix returns at most n leading bytes of s, cut on a rune boundary.
func prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// suffix returns at most n trailing bytes of s, cut on a rune boundary.
func suffix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return ""
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
