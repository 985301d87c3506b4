package curator

import "errors"

var (
	ErrClosed        = errors.New("curator is closed")
	ErrNoOutput      = errors.New("output path is required")
	ErrUnknownSource = errors.New("unknown search source")
	ErrNoModel       = errors.New("llm strategy requires a language model")
)
