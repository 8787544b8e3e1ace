package fileops

import (
	"regexp"
	"strings"
)

var (
	blockPattern = regexp.MustCompile(`(?s)<file_operation>(.*?)</file_operation>`)
	tagPatterns  = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"type", "path", "content", "find", "position", "reason"} {
		tagPatterns[tag] = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
	}
}

// Rejection is a block that could not be turned into an Op.
type Rejection struct {
	Index  int    `json:"index"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Ops      []Op        `json:"operations"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Parse extracts every <file_operation> block from text. Blocks are
// validated here, so the ops returned are well-formed; blocks that are not
// are reported in Rejected with the reason.
func Parse(text string) ParseResult {
	var res ParseResult
	for i, m := range blockPattern.FindAllStringSubmatch(text, -1) {
		op, err := parseBlock(m[1])
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Path: op.Path, Reason: err.Error()})
			continue
		}
		res.Ops = append(res.Ops, op)
	}
	return res
}

func parseBlock(block string) (Op, error) {
	var op Op
	op.Path, _ = tag(block, "path")
	op.Path = strings.TrimSpace(op.Path)

	rawKind, ok := tag(block, "type")
	if !ok {
		return op, ErrUnknownKind
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		return op, err
	}
	op.Kind = kind

	content, _ := tag(block, "content")
	if kind == KindPatch {
		// Patch text is matched against the file, so only the line breaks
		// that frame the tags are dropped.
		op.Content = strings.Trim(content, "\r\n")
		find, _ := tag(block, "find")
		op.Find = strings.Trim(find, "\r\n")
	} else {
		op.Content = strings.TrimSpace(content)
	}

	if kind == KindInsert {
		raw, _ := tag(block, "position")
		if op.Position, err = ParsePosition(raw); err != nil {
			return op, err
		}
	}

	reason, _ := tag(block, "reason")
	op.Reason = strings.TrimSpace(reason)
	if op.Reason == "" {
		op.Reason = DefaultReason
	}
	return op, op.Validate()
}

func tag(block, name string) (string, bool) {
	m := tagPatterns[name].FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return m[1], true
}
