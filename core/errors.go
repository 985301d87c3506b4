// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Domain validation errors
var (
	// ErrInvalidEntry indicates an Entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrScoreOutOfRange indicates a relevance score outside [0,1].
	ErrScoreOutOfRange = errors.New("relevance score must be within [0,1]")

	// ErrEmptyURL indicates the URL field is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrInvalidURL indicates a URL that cannot be normalized.
	ErrInvalidURL = errors.New("invalid url")

	// ErrUnknownStrategy indicates an unrecognized query strategy name.
	ErrUnknownStrategy = errors.New("unknown query strategy")

	// ErrInvalidAgentSpec indicates an AgentSpec failed validation.
	ErrInvalidAgentSpec = errors.New("invalid agent spec")
)

// FetchKind classifies fetch failures.
type FetchKind int

const (
	// FetchTransient failures may succeed when retried (timeouts, 5xx, rate limits).
	FetchTransient FetchKind = iota + 1
	// FetchPermanent failures will not succeed on retry (4xx, malformed responses).
	FetchPermanent
)

func (k FetchKind) String() string {
	if k == FetchTransient {
		return "transient"
	}
	return "permanent"
}

// FetchError is returned by search clients. It is always recoverable.
type FetchError struct {
	Kind  FetchKind
	Query string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failure for %q: %v", e.Kind, e.Query, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewTransientFetchError wraps err as a retryable fetch failure.
func NewTransientFetchError(query string, err error) *FetchError {
	return &FetchError{Kind: FetchTransient, Query: query, Err: err}
}

// NewPermanentFetchError wraps err as a non-retryable fetch failure.
func NewPermanentFetchError(query string, err error) *FetchError {
	return &FetchError{Kind: FetchPermanent, Query: query, Err: err}
}

// IsTransient reports whether err should be retried.
// Timeouts are transient even when the client did not classify them.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Kind == FetchTransient {
			return true
		}
		if fe.Kind == FetchPermanent {
			return false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// ExtractError indicates a hit could not be turned into an Entry. The hit is dropped.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// WriteError indicates the output sink rejected an entry. It aborts the run.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write entry: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// LoadError indicates the knowledge base could not be loaded. It is fatal at startup.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load knowledge base: %v", e.Err)
	}
	return fmt.Sprintf("load knowledge base %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ConfigError indicates an invalid run configuration. It is fatal at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort a run.
func IsFatal(err error) bool {
	var we *WriteError
	var le *LoadError
	var ce *ConfigError
	return errors.As(err, &we) || errors.As(err, &le) || errors.As(err, &ce)
}
