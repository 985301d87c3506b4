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


// Package ai provides abstractions for the language-model services the
// curator can use to judge relevance and to draft search queries.
//
// The package defines three interfaces:
//
//   - RelevanceScorer: rates an entry's relevance to Indian agriculture
//   - QueryWriter: drafts search queries for an agent's specialization
//   - Provider: aggregates services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: production implementation over OpenAI-compatible chat APIs
//     (Ollama, LocalAI, vLLM) using langchaingo
//   - ai/mock: test doubles for unit testing without a model server
//
// Public constructors (openai.NewProvider) return interface types. Test
// constructors (mock.NewMockScorer) return concrete types so tests can inject
// behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("qwen2.5:3b"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	score, err := provider.Scorer().Score(ctx, entry)
package ai
