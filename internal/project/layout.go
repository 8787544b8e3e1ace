// Package project knows the on-disk shape of a novel project: its
// directory layout, the metadata sidecar, how files are read, listed and
// chunked, and how a new project is scaffolded.
package project

// Project directories, relative to the project root.
const (
	DirPlanning   = "planning"
	DirCharacters = "characters"
	DirChapters   = "manuscript/chapters"
	DirScenes     = "manuscript/scenes"
	DirStoryBible = "story-bible"
	DirResearch   = "research"
	DirFeedback   = "feedback"
	DirExports    = "exports"

	// DirInternal holds server-owned state such as the memory index.
	DirInternal = ".novel_buddies"
)

// Directories is the scaffolded directory set.
var Directories = []string{
	DirPlanning,
	DirCharacters,
	DirChapters,
	DirScenes,
	DirStoryBible,
	DirResearch,
	DirFeedback,
	DirExports,
}

// CriticalFiles are the planning documents every request should see.
var CriticalFiles = []string{
	"planning/story-outline.md",
	"planning/chapter-breakdown.md",
	"planning/themes.md",
}

// StoryBiblePatterns select world-building and character files.
var StoryBiblePatterns = []string{
	"story-bible/**/*.md",
	"characters/*.md",
}

// ChapterPatterns select the manuscript chapters.
var ChapterPatterns = []string{
	"manuscript/chapters/*.md",
}

// DefaultExtensions are the loadable text extensions.
var DefaultExtensions = []string{".md", ".txt", ".markdown", ".rst", ".org", ".json"}

// IndexExtensions are the extensions fed to the memory index.
var IndexExtensions = []string{".md", ".txt", ".markdown", ".rst", ".org"}

// DefaultMaxFileBytes caps a single file at 1 MiB.
const DefaultMaxFileBytes = 1 << 20

// skippedDirs are never descended into when walking a project.
var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	DirInternal:    true,
	DirExports:     true,
}
