// Package sink writes accepted entries to durable output.
//
// The JSONL sink is the boundary format consumed by downstream indexing: one
// entry per line with the fields title, text, url, source_domain,
// relevance_score, tags, extraction_timestamp and content_length. Every
// failure is returned as *core.WriteError, which aborts a run.
package sink
