package content

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EncodeName renders a file name or path for a tab and newline separated
// record. Names holding control characters or invalid UTF-8, and names that
// start with a double quote, are written Go-quoted; everything else as is.
func EncodeName(name string) string {
	if strings.HasPrefix(name, `"`) || strings.IndexFunc(name, unicode.IsControl) >= 0 || !utf8.ValidString(name) {
		return strconv.Quote(name)
	}
	return name
}

// DecodeName reverses EncodeName.
func DecodeName(field string) (string, error) {
	if !strings.HasPrefix(field, `"`) {
		return field, nil
	}
	return strconv.Unquote(field)
}
