package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// MetadataFile is the sidecar name at the project root.
const MetadataFile = ".novel-project.json"

// Sidecar format constants.
const (
	MetadataVersion = "1.0.0"
	MetadataType    = "novel-project"
)

// Metadata is the project sidecar. When a project directory is reopened it
// is the authority on the project's identity and description.
type Metadata struct {
	Version         string `json:"version"`
	Type            string `json:"type"`
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Genre           string `json:"genre,omitempty"`
	TargetWordCount int    `json:"targetWordCount,omitempty"`
	Premise         string `json:"premise,omitempty"`
	Themes          string `json:"themes,omitempty"`
	Setting         string `json:"setting,omitempty"`
	KeyCharacters   string `json:"keyCharacters,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

// NewMetadata returns metadata for a new project with a fresh ID and
// timestamps set to now.
func NewMetadata(title string) Metadata {
	now := time.Now().Unix()
	return Metadata{
		Version:   MetadataVersion,
		Type:      MetadataType,
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LoadMetadata reads the sidecar from root. A missing sidecar is
// ErrNoMetadata. Sidecars that carry only version and type are given a
// fresh ID and the directory name as title; callers persist them with
// SaveMetadata.
func LoadMetadata(root string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(root, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNoMetadata, root)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("project: read metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("project: parse metadata: %w", err)
	}
	if m.Type != "" && m.Type != MetadataType {
		return Metadata{}, fmt.Errorf("%w: %s has type %q", ErrNoMetadata, root, m.Type)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Title == "" {
		m.Title = filepath.Base(root)
	}
	return m, nil
}

// SaveMetadata writes m to root, bumping UpdatedAt. The write goes through
// a temp file so a crash never leaves a truncated sidecar.
func SaveMetadata(root string, m Metadata) error {
	if m.Version == "" {
		m.Version = MetadataVersion
	}
	m.Type = MetadataType
	m.UpdatedAt = time.Now().Unix()
	if m.CreatedAt == 0 {
		m.CreatedAt = m.UpdatedAt
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("project: encode metadata: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(root, MetadataFile+".*")
	if err != nil {
		return fmt.Errorf("project: write metadata: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("project: write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("project: write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(root, MetadataFile)); err != nil {
		return fmt.Errorf("project: write metadata: %w", err)
	}
	return nil
}
