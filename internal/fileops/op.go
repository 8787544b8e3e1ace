// Package fileops applies file operations proposed in model responses to a
// project tree. Operations run one at a time in order, so later operations
// in a batch see the effects of earlier ones.
package fileops

import (
	"fmt"
	"strings"
)

// DefaultReason is used for operations that do not state one.
const DefaultReason = "No reason provided"

// Op is one requested file operation.
type Op struct {
	Kind     Kind     `json:"type"`
	Path     string   `json:"path"`
	Content  string   `json:"content,omitempty"`
	Find     string   `json:"find,omitempty"`
	Position Position `json:"position,omitzero"`
	Reason   string   `json:"reason"`
	Agent    string   `json:"agent_type,omitempty"`
}

// Validate checks the operation before any filesystem access.
func (o Op) Validate() error {
	if _, err := ParseKind(string(o.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(o.Path) == "" {
		return ErrMissingPath
	}
	if o.Kind == KindPatch && strings.TrimSpace(o.Find) == "" {
		return fmt.Errorf("%w: %s", ErrMissingFind, o.Path)
	}
	return nil
}

func (o Op) reason() string {
	if strings.TrimSpace(o.Reason) == "" {
		return DefaultReason
	}
	return o.Reason
}
