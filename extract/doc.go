// Package extract converts raw search hits into scored, tagged entries.
//
// An Extractor normalizes the hit, optionally downloads the full page when
// the search backend returned only a snippet, computes a content
// fingerprint, and asks a Scorer for a relevance score. The Tagger adds
// content type, topical, region and crop tags drawn from the knowledge base.
package extract
