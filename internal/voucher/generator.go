// Package voucher generates hotspot credential codes.
package voucher

import (
	"crypto/rand"
	"fmt"
)

const (
	// Prefix makes issued codes recognizable on the router and in support
	// conversations.
	Prefix = "NET-"

	// alphabet is 32 symbols with 0/O/1/I removed: codes are typed by hand
	// on a captive portal login page. 32 divides 256, so reducing random
	// bytes modulo the alphabet length introduces no bias.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// codeLength of 8 over a 32-symbol alphabet gives 40 bits of entropy.
	codeLength = 8
)

// NewCode returns a fresh voucher code. Uniqueness is probabilistic by
// entropy; no external state is consulted.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("voucher: read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return Prefix + string(buf), nil
}
