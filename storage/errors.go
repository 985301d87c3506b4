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


package storage

import "errors"

var (
	// ErrNotFound is returned when a run or snapshot lookup misses.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidKey is returned for records missing the ID they are keyed by,
	// such as a snapshot without an agent ID or a run without a run ID.
	ErrInvalidKey = errors.New("record has no key")

	// ErrTransactionFailed wraps a failed Badger transaction.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed is returned by every repository after Close.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed wraps JSON encode and decode failures of stored values.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrEmptyRecord is returned when a stored value has no bytes.
	ErrEmptyRecord = errors.New("empty record")
)
