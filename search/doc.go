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


// Package search defines the Client contract agents use to turn a query into
// raw hits, along with failure classification and a rate-limiting decorator.
//
// Concrete backends live in subpackages:
//   - ddg scrapes the DuckDuckGo HTML endpoint with goquery
//   - news reads Google News RSS results with gofeed
//   - mock is a scripted client for tests
//
// Every failure a Client returns is a *core.FetchError whose Kind tells the
// caller whether a retry can help.
package search
