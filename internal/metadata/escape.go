package metadata

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rzbill/segstore/internal/segment"
)

// emptyKey is the escaped form of "". QueryEscape never emits a lone '%'.
const emptyKey = "%"

const escapedDot = "%2E"

// formEncoding adjusts QueryEscape to the form encoding other writers of the
// same bucket use: '*' stays literal and '~' is escaped. QueryEscape emits
// "%2A" only for '*', since a literal '%' becomes "%25".
var formEncoding = strings.NewReplacer("%2A", "*", "~", "%7E")

// Escape maps an arbitrary metadata key to a single path segment. The result
// never contains '/', is never "." or "..", and is never empty.
func Escape(key string) string {
	if key == "" {
		return emptyKey
	}
	if strings.Trim(key, ".") == "" {
		return strings.Repeat(escapedDot, len(key))
	}
	return formEncoding.Replace(url.QueryEscape(key))
}

// Unescape reverses Escape.
func Unescape(s string) (string, error) {
	if s == emptyKey {
		return "", nil
	}
	key, err := url.QueryUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: metadata segment %q: %w", segment.ErrMalformedKey, s, err)
	}
	return key, nil
}
