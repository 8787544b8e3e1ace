package fileops

import (
	"fmt"
	"strconv"
	"strings"
)

// Anchor says where an insert goes.
type Anchor string

// Insert anchors. The zero Anchor behaves as AnchorEnd.
const (
	AnchorStart  Anchor = "start"
	AnchorEnd    Anchor = "end"
	AnchorAfter  Anchor = "after"
	AnchorBefore Anchor = "before"
	AnchorLine   Anchor = "line"
)

// Position is an insert location: the start or end of the file, the line
// after or before the first line containing Marker, or 1-based Line.
type Position struct {
	Anchor Anchor
	Marker string
	Line   int
}

// ParsePosition parses "start", "end", "after:<marker>", "before:<marker>"
// or a line number. An empty string is the end of the file.
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "end":
		return Position{Anchor: AnchorEnd}, nil
	case "start":
		return Position{Anchor: AnchorStart}, nil
	}
	if prefix, marker, ok := strings.Cut(s, ":"); ok {
		var anchor Anchor
		switch strings.ToLower(strings.TrimSpace(prefix)) {
		case "after":
			anchor = AnchorAfter
		case "before":
			anchor = AnchorBefore
		default:
			return Position{}, fmt.Errorf("%w: %q", ErrBadPosition, s)
		}
		if marker == "" {
			return Position{}, fmt.Errorf("%w: empty marker in %q", ErrBadPosition, s)
		}
		return Position{Anchor: anchor, Marker: marker}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Position{}, fmt.Errorf("%w: %q", ErrBadPosition, s)
	}
	return Position{Anchor: AnchorLine, Line: n}, nil
}

// String returns the textual form accepted by ParsePosition.
func (p Position) String() string {
	switch p.Anchor {
	case AnchorStart:
		return "start"
	case AnchorAfter, AnchorBefore:
		return string(p.Anchor) + ":" + p.Marker
	case AnchorLine:
		return strconv.Itoa(p.Line)
	default:
		return "end"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// offset returns the byte offset in content where an insert at p begins.
// Offsets are always at a line boundary or the end of content.
func (p Position) offset(content string) (int, error) {
	switch p.Anchor {
	case AnchorStart:
		return 0, nil
	case AnchorAfter, AnchorBefore:
		idx := strings.Index(content, p.Marker)
		if idx < 0 {
			return 0, fmt.Errorf("%w: marker %q", ErrAnchorNotFound, p.Marker)
		}
		if p.Anchor == AnchorBefore {
			return strings.LastIndexByte(content[:idx], '\n') + 1, nil
		}
		end := idx + len(p.Marker)
		if nl := strings.IndexByte(content[end:], '\n'); nl >= 0 {
			return end + nl + 1, nil
		}
		return len(content), nil
	case AnchorLine:
		off := 0
		for line := 1; line < p.Line; line++ {
			nl := strings.IndexByte(content[off:], '\n')
			if nl < 0 {
				if line == p.Line-1 && off < len(content) {
					// One past the last line appends.
					return len(content), nil
				}
				return 0, fmt.Errorf("%w: line %d", ErrAnchorNotFound, p.Line)
			}
			off += nl + 1
		}
		return off, nil
	default:
		return len(content), nil
	}
}

// insertLines places text at off, adding line breaks so text sits on its
// own lines.
func insertLines(content string, off int, text string) string {
	var b strings.Builder
	b.Grow(len(content) + len(text) + 2)
	b.WriteString(content[:off])
	if off > 0 && content[off-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	if off < len(content) && !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(content[off:])
	return b.String()
}
