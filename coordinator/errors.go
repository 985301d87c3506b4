package coordinator

import "errors"

var (
	// ErrNoSpecs is returned by Start when no agent specs were given.
	ErrNoSpecs = errors.New("no agent specs")

	// ErrDuplicateSpec is returned by Start when two specs share an ID.
	ErrDuplicateSpec = errors.New("duplicate agent spec id")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing coordinator dependency")
)
