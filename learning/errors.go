package learning

import "errors"

// ErrInvalidKey indicates a serialized PatternKey without a separator.
var ErrInvalidKey = errors.New("invalid pattern key")
