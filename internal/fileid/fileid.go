// Package fileid derives storage keys and content digests for uploaded files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

const keyLayout = "20060102150405"

// ObjectKey returns the blob key for an upload: the UTC timestamp, the document id and the
// base file name, e.g. "20240131093000_3f2a..._report.pdf". Path separators in name are
// dropped. Distinct ids give distinct keys even within the same second.
func ObjectKey(at time.Time, id, name string) string {
	return at.UTC().Format(keyLayout) + "_" + id + "_" + BaseName(name)
}

// BaseName returns the last element of name with either separator style, or "upload"
// when nothing usable remains.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "upload"
	}
	return base
}

// Digest returns a stable hex digest of content. Same bytes always yield the same digest.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
