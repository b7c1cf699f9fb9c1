package normalize

import (
	"errors"
	"strings"
)

// ErrBadSymbol marks a row whose instrument code failed validation.
var ErrBadSymbol = errors.New("invalid instrument code")

// NormalizeSymbol validates and canonicalizes an instrument code.
//
// The code is uppercased and trimmed; a ".CFFEX"-style exchange suffix is
// dropped, keeping the prefix before the first dot. The result is valid only
// if it has at least two characters and the first two are alphabetic
// ("IF2401", "IF888"); otherwise ErrBadSymbol.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))

	if idx := strings.IndexByte(symbol, '.'); idx >= 0 {
		symbol = symbol[:idx]
	}

	if len(symbol) < 2 || !isAlpha(symbol[0]) || !isAlpha(symbol[1]) {
		return "", ErrBadSymbol
	}
	return symbol, nil
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
