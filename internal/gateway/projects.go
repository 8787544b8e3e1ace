package gateway

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/security"
)

// initialCommitMessage labels the commit made when a project is created.
const initialCommitMessage = "Initial project structure"

type listProjectsResponse struct {
	Projects []project.Entry `json:"projects"`
}

func (g *Gateway) handleListProjects(w http.ResponseWriter, _ *http.Request) {
	entries, err := project.Discover(g.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		g.logger.Error("listing projects failed", "root", g.root, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list projects")
		return
	}
	if entries == nil {
		entries = []project.Entry{}
	}
	writeJSON(w, http.StatusOK, listProjectsResponse{Projects: entries})
}

// createProjectRequest is the body of POST /api/projects. Name is the
// directory to create; it defaults to a slug of the title.
type createProjectRequest struct {
	Name            string `json:"name"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	TargetWordCount int    `json:"targetWordCount"`
	Premise         string `json:"premise"`
	Themes          string `json:"themes"`
	Setting         string `json:"setting"`
	KeyCharacters   string `json:"keyCharacters"`
}

type createProjectResponse struct {
	Project project.Entry `json:"project"`
	Files   []string      `json:"files"`
}

func (g *Gateway) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = project.Slug(req.Title)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid project name")
		return
	}
	path, err := security.ResolvePath(g.root, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project name")
		return
	}

	meta := project.NewMetadata(req.Title)
	meta.Author = req.Author
	meta.Genre = req.Genre
	meta.TargetWordCount = req.TargetWordCount
	meta.Premise = req.Premise
	meta.Themes = req.Themes
	meta.Setting = req.Setting
	meta.KeyCharacters = req.KeyCharacters

	files, err := project.Scaffold(path, meta)
	switch {
	case errors.Is(err, project.ErrExists):
		writeError(w, http.StatusConflict, "project already exists: "+name)
		return
	case err != nil:
		g.logger.Error("scaffolding project failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create project")
		return
	}

	if g.git != nil {
		if err := g.git.Init(r.Context(), path, initialCommitMessage); err != nil {
			g.logger.Warn("initializing project repository failed", "path", path, "error", err)
		}
	}

	entry, err := project.Open(path)
	if err != nil {
		g.logger.Error("opening new project failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "could not open project")
		return
	}
	if g.queue != nil {
		reader := project.NewReader(entry.Path)
		for _, rel := range files {
			content, err := reader.ReadFile(rel)
			if err != nil {
				continue
			}
			g.queue.Enqueue(indexer.Job{
				ProjectPath: entry.Path,
				ProjectID:   entry.Metadata.ID,
				Path:        rel,
				Content:     content,
			})
		}
	}

	g.logger.Info("project created", "project", entry.Metadata.ID, "path", entry.Path, "files", len(files))
	writeJSON(w, http.StatusCreated, createProjectResponse{Project: entry, Files: files})
}

func (g *Gateway) handleGetProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projectFrom(r))
}
