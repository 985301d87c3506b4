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


// Package storage provides the storage abstraction layer for curator.
//
// This package defines repository interfaces that decouple persistence of
// the deduplication set, learning snapshots and run summaries from the
// coordinator and agents. The BadgerDB implementation lives in storage/badger.
//
// # Architecture
//
//   - SeenRepository: URLs and content fingerprints admitted by earlier runs
//   - LearningRepository: per-agent learning snapshots used to resume learning
//   - RunRepository: final RunStats of every run
//   - Repositories: the bundle opened by curator.Open
//
// # Usage
//
// Create repositories backed by a directory:
//
//	repos, err := badger.Open("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Values
//
// Values are stored as JSON documents so stored runs can be inspected with
// generic tooling.
package storage
