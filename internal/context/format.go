package ctxengine

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// Format renders admitted files as the project-files block of the prompt.
// Files are expected in admission order. An empty slice renders as "".
func Format(files []Candidate) string {
	if len(files) == 0 {
		return ""
	}

	total := 0
	for i := range files {
		total += files[i].Tokens
	}

	sections := make([]string, 0, len(files)+1)
	sections = append(sections, numberPrinter.Sprintf("## PROJECT FILES (%d files, ~%d tokens)\n\n", len(files), total)+
		"Context assembled by priority:\n"+
		"1. Active file (currently being edited)\n"+
		"2. Planning and story bible (outline, world-building, characters, continuity)\n"+
		"3. Other chapters (for reference)\n")

	for i := range files {
		var b strings.Builder
		b.WriteString("### ")
		if label := files[i].Category.Label(); label != "" {
			b.WriteString(label)
			b.WriteByte(' ')
		}
		b.WriteString(files[i].Path)
		b.WriteString("\n```\n")
		b.WriteString(files[i].Content)
		b.WriteString("\n```\n")
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n")
}
