package lobby

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var ErrInvalidDisplayName = errors.New("display name must be 1-32 characters")

const MaxDisplayNameLen = 32

// NormalizeDisplayName trims and NFC-normalizes a name so visually identical
// names compare equal.
func NormalizeDisplayName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if c := utf8.RuneCountInString(n); c == 0 || c > MaxDisplayNameLen {
		return "", ErrInvalidDisplayName
	}
	return n, nil
}
