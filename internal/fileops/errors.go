package fileops

import (
	"errors"
	"fmt"

	"github.com/catonblt/novelbuddies/internal/patch"
)

var (
	// ErrUnknownKind indicates an operation type outside the supported set.
	ErrUnknownKind = errors.New("fileops: unknown operation type")

	// ErrMissingPath indicates an operation without a target path.
	ErrMissingPath = errors.New("fileops: missing path")

	// ErrMissingFind indicates a patch without find text. It matches
	// patch.ErrEmptyFind so callers can treat both the same way.
	ErrMissingFind = fmt.Errorf("fileops: patch requires find text: %w", patch.ErrEmptyFind)

	// ErrBadPosition indicates an insert position that cannot be parsed.
	ErrBadPosition = errors.New("fileops: invalid insert position")

	// ErrAnchorNotFound indicates an insert marker or line that is not in the file.
	ErrAnchorNotFound = errors.New("fileops: insert position not found")
)
