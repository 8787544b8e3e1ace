package patch

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalises whitespace so that two passages differing only
// in formatting compare equal. Line endings become "\n", text is NFC
// composed, runs of spaces and tabs collapse to one space, every line is
// trimmed, 3+ newlines collapse to a single blank line and the block is
// trimmed.
func Normalize(s string) string {
	if strings.IndexByte(s, '\r') >= 0 {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	blank, wrote := 0, false
	for line := range strings.SplitSeq(s, "\n") {
		line = strings.Trim(line, " \t")
		if line == "" {
			blank++
			continue
		}
		if wrote {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		writeCollapsed(&b, line)
		wrote, blank = true, 0
	}
	return b.String()
}

// writeCollapsed writes line with each run of spaces and tabs replaced by a
// single space.
func writeCollapsed(b *strings.Builder, line string) {
	inRun := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == ' ' || c == '\t' {
			if !inRun {
				b.WriteByte(' ')
			}
			inRun = true
			continue
		}
		inRun = false
		b.WriteByte(c)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// trimSpan shrinks [start,end) of s so it neither starts nor ends on whitespace.
func trimSpan(s string, start, end int) (int, int) {
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return start, end
}
