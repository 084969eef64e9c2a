// Package segment splits document text into addressable units.
package segment

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/docqa/internal/models"
)

// Mode selects how text is split into units.
type Mode string

const (
	// Dense splits text into overlapping windows of bounded size.
	Dense Mode = "dense"
	// Sparse splits text into blank-line separated paragraphs.
	Sparse Mode = "sparse"
)

// Defaults for dense windowing, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// ParseMode validates a segmentation mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Dense, Sparse:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown segmentation mode %q", models.ErrConfiguration, s)
	}
}

// Segmenter splits text into units. It holds no per-document state and is safe for concurrent use.
type Segmenter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSegmenter creates a segmenter with the given window size and overlap (in runes).
// The overlap must satisfy 0 <= chunkOverlap < chunkSize.
func NewSegmenter(chunkSize, chunkOverlap int) (*Segmenter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d",
			models.ErrConfiguration, chunkSize, chunkOverlap)
	}
	return &Segmenter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Segment splits text into units using mode. Empty text yields no units and no error.
func (s *Segmenter) Segment(text string, mode Mode) ([]models.Unit, error) {
	switch mode {
	case Dense:
		return s.dense(text), nil
	case Sparse:
		return paragraphs(text), nil
	default:
		return nil, fmt.Errorf("%w: unknown segmentation mode %q", models.ErrConfiguration, mode)
	}
}

// dense slides a window of chunkSize runes over text. Each window is cut at the last
// paragraph or sentence boundary past start+chunkOverlap, else at chunkSize. The next
// window starts chunkOverlap runes before the previous end. Whitespace-only windows are
// not emitted; their runes are folded into the start of the next unit, or the end of the
// last one, so the units still cover the whole text.
func (s *Segmenter) dense(text string) []models.Unit {
	runes := []rune(text)
	n := len(runes)
	var units []models.Unit
	start, cover := 0, 0
	for start < n {
		end := start + s.chunkSize
		if end >= n {
			end = n
		} else {
			end = s.cut(runes, start, end)
		}
		if strings.TrimSpace(string(runes[start:end])) != "" {
			from, overlap := start, 0
			if cover > start {
				overlap = cover - start
			} else {
				from = cover
			}
			units = append(units, models.Unit{
				Text:                string(runes[from:end]),
				Ordinal:             len(units),
				Start:               from,
				OverlapWithPrevious: overlap,
			})
			cover = end
		}
		if end == n {
			break
		}
		next := end - s.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	if len(units) > 0 && cover < n {
		units[len(units)-1].Text += string(runes[cover:])
	}
	return units
}

// cut returns the end of the window [start, limit).
func (s *Segmenter) cut(runes []rune, start, limit int) int {
	floor := start + s.chunkOverlap
	if at := lastParagraphBreak(runes, start, floor, limit); at > 0 {
		return at
	}
	if at := lastSentenceBreak(runes, start, floor, limit); at > 0 {
		return at
	}
	return limit
}

// lastParagraphBreak returns the index just after the last "\n\n" ending in (floor, limit]
// and starting after start, or -1.
func lastParagraphBreak(runes []rune, start, floor, limit int) int {
	for i := limit - 2; i > start && i+2 > floor; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	return -1
}

// lastSentenceBreak returns the index just after the last terminator+whitespace pair ending
// in (floor, limit] and starting after start, or -1.
func lastSentenceBreak(runes []rune, start, floor, limit int) int {
	for i := limit - 2; i > start && i+2 > floor; i-- {
		if isTerminator(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}
	return -1
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// paragraphs splits on blank lines. Without any blank line the whole text is one unit.
func paragraphs(text string) []models.Unit {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := []string{text}
	if strings.Contains(text, "\n\n") {
		parts = strings.Split(text, "\n\n")
	}
	var units []models.Unit
	offset := 0
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			lead := strings.Index(part, trimmed)
			units = append(units, models.Unit{
				Text:    trimmed,
				Ordinal: len(units),
				Start:   offset + utf8.RuneCountInString(part[:lead]),
			})
		}
		offset += utf8.RuneCountInString(part) + 2
	}
	return units
}
