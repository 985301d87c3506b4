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


// Package coordinator runs a fleet of agents on a bounded worker pool.
//
// A Coordinator is created once from a validated RunConfig and the shared
// collaborators (search client, extractor, dedup index, sink and the optional
// repositories). Start builds one agent per AgentSpec and schedules them; at
// most MaxConcurrentAgents agents are active at a time and the rest wait for
// a free worker.
//
// While the run is active the coordinator:
//   - aggregates agent events into RunStats and reports them periodically
//   - stops every agent once MaxEntries or MaxDuration is reached
//   - merges agent learning into a shared prior when ShareLearning is set
//
// Cancel stops all agents after their current fetch. A write failure or a
// fatal agent error aborts the run; Wait returns that error together with
// the partial RunStats. Learning snapshots and the final RunStats are
// persisted in every case.
package coordinator
