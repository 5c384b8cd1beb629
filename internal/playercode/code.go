package playercode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Length is the number of characters in a public player code.
const Length = 5

// alphabet deliberately excludes easily-confused characters (0/O, 1/I).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// prefixPattern matches a bracketed code at the start of a provider display
// name, e.g. "[AB3CD] Jane Doe".
var prefixPattern = regexp.MustCompile(`^\[([A-Za-z0-9]{5})\]`)

// Generate returns a new random public player code.
func Generate() (string, error) {
	var b strings.Builder
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate player code: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Extract pulls the public code out of a display name. The code is
// case-insensitive; the returned value is upper-cased. Returns "" when the
// name carries no code prefix.
func Extract(displayName string) string {
	m := prefixPattern.FindStringSubmatch(strings.TrimSpace(displayName))
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// DisplayLabel builds the provider-facing display name for a registration.
// The bracketed prefix is the only correlation key between provider
// participants and internal players, so it must lead the label.
func DisplayLabel(code, username string) string {
	return fmt.Sprintf("[%s] %s", code, username)
}
