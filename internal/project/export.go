package project

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Typographer, extension.Table))

var exportPage = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 40em; margin: 3em auto; font-family: Georgia, serif; line-height: 1.6; }
section.chapter { page-break-before: always; }
header { text-align: center; margin-bottom: 4em; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{with .Author}}<p class="author">{{.}}</p>{{end}}
</header>
{{range .Chapters}}<section class="chapter" id="{{.ID}}">
{{.Body}}
</section>
{{end}}</body>
</html>
`))

type exportChapter struct {
	ID   string
	Body template.HTML
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a file-name-safe identifier.
func Slug(s string) string {
	s = strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if s == "" {
		return "manuscript"
	}
	return s
}

// Export renders the manuscript chapters, in path order, to a single HTML
// file under exports/ and returns its project-relative path.
func Export(r *Reader, meta Metadata) (string, error) {
	chapters, err := r.List(ChapterPatterns...)
	if err != nil {
		return "", err
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoChapters, DirChapters)
	}

	data := struct {
		Title    string
		Author   string
		Chapters []exportChapter
	}{Title: meta.Title, Author: meta.Author}

	for _, rel := range chapters {
		content, err := r.ReadFile(rel)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(content), &buf); err != nil {
			return "", fmt.Errorf("project: render %s: %w", rel, err)
		}
		data.Chapters = append(data.Chapters, exportChapter{
			ID:   Slug(Title(rel)),
			Body: template.HTML(buf.String()), //nolint:gosec // goldmark escapes raw HTML by default
		})
	}

	var page bytes.Buffer
	if err := exportPage.Execute(&page, data); err != nil {
		return "", fmt.Errorf("project: export: %w", err)
	}

	rel := DirExports + "/" + Slug(meta.Title) + ".html"
	full := filepath.Join(r.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("project: export: %w", err)
	}
	if err := os.WriteFile(full, page.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("project: export: %w", err)
	}
	return rel, nil
}
