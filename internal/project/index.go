package project

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// indexDirs are the directories listed in the file index, in order.
var indexDirs = []string{
	DirPlanning,
	DirCharacters,
	DirChapters,
	DirScenes,
	DirStoryBible,
	DirResearch,
	DirFeedback,
}

var sizePrinter = message.NewPrinter(language.English)

// FileIndex renders a listing of the project's loadable files with their
// sizes. It goes into the system prompt so the model knows what exists
// beyond the files whose content was included.
func FileIndex(r *Reader) string {
	lines := []string{"## PROJECT FILE INDEX\n"}
	for _, dir := range indexDirs {
		files, err := r.List(dir + "/**")
		if err != nil {
			continue
		}
		var entries []string
		for _, f := range files {
			if !r.Allowed(f) {
				continue
			}
			entries = append(entries, fmt.Sprintf("- %s (%s)", strings.TrimPrefix(f, dir+"/"), formatSize(r, f)))
		}
		if len(entries) == 0 {
			continue
		}
		lines = append(lines, "\n### "+dir+"/")
		lines = append(lines, entries...)
	}
	return strings.Join(lines, "\n")
}

func formatSize(r *Reader, rel string) string {
	size, err := r.Size(rel)
	if err != nil {
		return "unknown size"
	}
	if size < 1024 {
		return sizePrinter.Sprintf("%d bytes", size)
	}
	return fmt.Sprintf("%.1f KB", float64(size)/1024)
}

// Title returns a display label for a chapter path: the base name without
// extension, with dashes and underscores as spaces.
func Title(rel string) string {
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}
