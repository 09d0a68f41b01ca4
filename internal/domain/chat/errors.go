package chat

import "errors"

// ErrInvalidStatus indicates a presence status outside the allowed set.
var ErrInvalidStatus = errors.New("invalid agent status")
