package export

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
)

// Romanize converts non-ASCII text to a romanized form. Pure-ASCII input
// round-trips byte-identical, and a failed conversion keeps the original
// text; transliteration never aborts an export.
func Romanize(text string, enabled bool) string {
	if !enabled || text == "" || isASCII(text) {
		return text
	}
	out := unidecode.Unidecode(text)
	if strings.TrimSpace(out) == "" {
		slog.Warn("Transliteration produced no output, keeping original text", "text", text)
		return text
	}
	return out
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
