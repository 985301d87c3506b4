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


package search

import "errors"

var (
	// ErrRateLimited marks a fetch rejected by the backend's rate limit.
	// Clients wrap it inside a transient core.FetchError.
	ErrRateLimited = errors.New("rate limited by search backend")

	// ErrMalformedResponse marks a response body that could not be parsed.
	ErrMalformedResponse = errors.New("malformed search response")

	// ErrEmptyQuery is returned when a query has no text.
	ErrEmptyQuery = errors.New("query text is empty")
)
