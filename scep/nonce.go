package scep

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// NonceSize is the fixed length, in bytes, of a SCEP sender/recipient
// nonce (draft-gutmann-scep-09 §3.2.1.5).
const NonceSize = 16

// Nonce is a fresh random value tying a response to the request that
// immediately preceded it.
type Nonce []byte

// NewNonce returns a fresh, cryptographically random 16-byte nonce.
func NewNonce() (Nonce, error) {
	n := make(Nonce, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, errors.Wrap(err, "error generating nonce")
	}
	return n, nil
}

// Equal reports whether two nonces carry the same bytes. A nil or
// length-mismatched nonce is never equal to anything.
func (n Nonce) Equal(other Nonce) bool {
	if len(n) == 0 || len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}
