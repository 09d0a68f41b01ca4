package workspace

import "errors"

// ErrInvalidTabType indicates an unknown tab type in an open request.
var ErrInvalidTabType = errors.New("invalid tab type")
