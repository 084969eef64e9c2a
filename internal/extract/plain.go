package extract

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractPlain decodes a text file. A UTF-8 or UTF-16 byte order mark selects the encoding
// and is dropped; without one the content is read as UTF-8. Invalid sequences become
// U+FFFD and CRLF line endings become "\n".
func extractPlain(content []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, content)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	text := strings.ToValidUTF8(string(decoded), "\ufffd")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
