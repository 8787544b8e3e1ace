package gateway

import (
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/security"
)

type fileInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type filesResponse struct {
	Files []fileInfo `json:"files"`
}

// handleListFiles lists the project's text files in walk order.
func (g *Gateway) handleListFiles(w http.ResponseWriter, r *http.Request) {
	reader := project.NewReader(projectFrom(r).Path)
	files := []fileInfo{}
	err := reader.Walk(reader.Extensions, func(rel string, info fs.FileInfo) error {
		files = append(files, fileInfo{Path: rel, Size: info.Size(), Modified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		g.logger.Error("listing files failed", "project", projectFrom(r).Metadata.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list files")
		return
	}
	writeJSON(w, http.StatusOK, filesResponse{Files: files})
}

type fileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (g *Gateway) handleReadFile(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	content, err := project.NewReader(projectFrom(r).Path).ReadFile(rel)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, fileResponse{Path: rel, Content: content})
	case errors.Is(err, security.ErrPathTraversal):
		g.audit.Log(security.AuditEvent{
			Type:    security.EventPathRejected,
			Project: projectFrom(r).Metadata.ID,
			Path:    rel,
			Detail:  err.Error(),
		})
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "file not found: "+rel)
	case errors.Is(err, project.ErrFiltered):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, project.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		g.logger.Error("reading file failed", "path", rel, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read file")
	}
}

type exportResponse struct {
	Path string `json:"path"`
}

// handleExport renders the manuscript to HTML under exports/.
func (g *Gateway) handleExport(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	rel, err := project.Export(project.NewReader(entry.Path), entry.Metadata)
	switch {
	case errors.Is(err, project.ErrNoChapters):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		g.logger.Error("export failed", "project", entry.Metadata.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not export manuscript")
		return
	}
	g.logger.Info("manuscript exported", "project", entry.Metadata.ID, "path", rel)
	writeJSON(w, http.StatusOK, exportResponse{Path: rel})
}
