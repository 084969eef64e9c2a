// Package models defines core data structures for documents, units, and answers.
package models

import "time"

// Document is a registered upload. The core never reads it; it is resolved by the
// document service before the pipeline runs.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Key       string    `json:"-" db:"object_key"`
	CreatedAt time.Time `json:"upload_date" db:"created_at"`
	// Source is the inbox path the document was read from; empty for direct uploads.
	Source string `json:"-" db:"source_path"`
	// Digest is the SHA-256 of the uploaded bytes.
	Digest string `json:"-" db:"digest"`
}

// Unit is a contiguous span of document text selected by the segmenter.
type Unit struct {
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
	// Start is the rune offset of Text in the segmented source.
	Start int `json:"start"`
	// OverlapWithPrevious is the number of runes shared with the preceding unit (dense mode only).
	OverlapWithPrevious int `json:"overlap_with_previous,omitempty"`
}

// ScoredUnit is a unit ranked against a query. Rank is 1-based.
type ScoredUnit struct {
	Unit  Unit    `json:"unit"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}
