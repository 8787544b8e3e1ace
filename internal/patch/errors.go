package patch

import "errors"

// Hint is the retry guidance attached to every failed match.
const Hint = "quote the exact passage from the file, including whitespace and line breaks"

var (
	// ErrEmptyFind indicates a patch with no text to search for. It is a
	// validation failure, not a miss.
	ErrEmptyFind = errors.New("patch: find text is empty")

	// ErrNoMatch indicates that no strategy located the find text.
	ErrNoMatch = errors.New("patch: find text not found")
)
