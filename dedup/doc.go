// Package dedup holds the run-wide set of admitted URLs and content
// fingerprints. It is the single point where concurrent agents race to
// claim a hit: TryAdmit returns true to exactly one caller per URL.
//
// MemoryIndex keeps the set in process. PersistentIndex writes each
// admission through to storage so a resumed run skips URLs emitted by
// earlier runs.
package dedup
