package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxWordRunes is the longest word WordPiece splits; longer words map to [UNK].
const maxWordRunes = 100

// WordPiece is the uncased BERT tokenizer used by all-MiniLM-L6-v2: basic tokenization
// followed by greedy longest-match-first lookup in the model's vocab.txt.
type WordPiece struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	pad   int64
	unk   int64
}

// LoadWordPiece reads a vocab.txt file (one token per line, id = line number).
func LoadWordPiece(path string) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()
	return NewWordPiece(f)
}

// NewWordPiece builds a tokenizer from vocabulary lines read from r.
func NewWordPiece(r io.Reader) (*WordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[token]; !dup {
			vocab[token] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	w := &WordPiece{vocab: vocab}
	for _, special := range []struct {
		token string
		id    *int64
	}{
		{"[CLS]", &w.cls},
		{"[SEP]", &w.sep},
		{"[PAD]", &w.pad},
		{"[UNK]", &w.unk},
	} {
		v, ok := vocab[special.token]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no %s token", special.token)
		}
		*special.id = v
	}
	return w, nil
}

// Tokenize encodes text as [CLS] pieces... [SEP], truncated and padded to maxTokens.
func (w *WordPiece) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = w.pad
	}

	inputIDs[0] = w.cls
	attentionMask[0] = 1
	pos := 1
fill:
	for _, word := range basicTokenize(text) {
		for _, id := range w.pieces(word) {
			if pos >= maxTokens-1 {
				break fill
			}
			inputIDs[pos] = id
			attentionMask[pos] = 1
			pos++
		}
	}
	inputIDs[pos] = w.sep
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// pieces splits one basic token into vocabulary ids. Continuations carry the "##" prefix.
func (w *WordPiece) pieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{w.unk}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := w.vocab[piece]; ok {
				ids = append(ids, id)
				break
			}
		}
		if end == start {
			return []int64{w.unk}
		}
		start = end
	}
	return ids
}

// basicTokenize cleans, lowercases and accent-strips text, then splits it on whitespace and
// punctuation. CJK ideographs become single-rune tokens.
func basicTokenize(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isSpace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	var words []string
	for _, field := range strings.Fields(b.String()) {
		words = appendPunctSplit(words, stripAccents(strings.ToLower(field)))
	}
	return words
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// appendPunctSplit appends the runs of s between punctuation, and each punctuation rune.
func appendPunctSplit(words []string, s string) []string {
	start := 0
	for i, r := range s {
		if !isPunct(r) {
			continue
		}
		if i > start {
			words = append(words, s[start:i])
		}
		words = append(words, string(r))
		start = i + len(string(r))
	}
	if start < len(s) {
		words = append(words, s[start:])
	}
	return words
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

// isPunct treats all non-alphanumeric ASCII symbols as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
