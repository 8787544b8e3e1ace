package fileops

import (
	"fmt"
	"strings"
)

// Kind is the operation type.
type Kind string

// Supported operation kinds.
const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindAppend Kind = "append"
	KindInsert Kind = "insert"
	KindPatch  Kind = "patch"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindCreate, KindUpdate, KindDelete, KindAppend, KindInsert, KindPatch}

// ParseKind returns the Kind named by s, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindCreate, KindUpdate, KindDelete, KindAppend, KindInsert, KindPatch:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// UnmarshalText implements encoding.TextUnmarshaler so unknown kinds are
// rejected while decoding.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
