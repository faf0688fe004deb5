package override

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"unicode"
)

// tokenAlphabet leaves out I, O, 0 and 1 so tokens survive being read aloud.
// Its length divides 256, so mapping a random byte onto it is unbiased.
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateToken(r io.Reader, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}

// NormalizeToken maps operator input such as "abcd-1234 x" to its canonical form.
func NormalizeToken(token string) string {
	token = strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, token)
	return strings.ToUpper(token)
}

// HashToken returns the hex SHA-256 of the normalized token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(NormalizeToken(token)))
	return hex.EncodeToString(sum[:])
}
