package project

import "errors"

var (
	// ErrFiltered indicates a file whose extension or kind is not loadable.
	ErrFiltered = errors.New("project: file type not loadable")

	// ErrTooLarge indicates a file over the reader's size limit.
	ErrTooLarge = errors.New("project: file too large")

	// ErrNoMetadata indicates a directory without a .novel-project.json sidecar.
	ErrNoMetadata = errors.New("project: no project metadata")

	// ErrExists indicates a scaffold target that already holds a project.
	ErrExists = errors.New("project: project already exists")

	// ErrNoChapters indicates an export of a project without chapter files.
	ErrNoChapters = errors.New("project: no chapters to export")
)
