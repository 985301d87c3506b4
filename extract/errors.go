package extract

import "errors"

var (
	// ErrMissingTitle is returned when a hit has no title.
	ErrMissingTitle = errors.New("hit has no title")

	// ErrUnsupportedContent is returned by page fetchers for non-HTML responses.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrPageStatus is returned by page fetchers for non-2xx responses.
	ErrPageStatus = errors.New("unexpected page status")
)
