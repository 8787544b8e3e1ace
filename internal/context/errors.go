package ctxengine

import "errors"

// ErrInvalidBudget indicates a context configuration that cannot be assembled against.
var ErrInvalidBudget = errors.New("context: invalid budget")
