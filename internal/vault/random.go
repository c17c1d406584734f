package vault

import (
	"crypto/rand"
	"fmt"
)

// randomize fills buf completely with cryptographically strong random bytes.
//
// Any failure here is treated as fatal to the calling operation: the crypto
// primitives layer never leaks platform diagnostics into the error taxonomy,
// it only ever surfaces ErrCryptoFailure.
func randomize(buf []byte) error {
	n, err := rand.Read(buf)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCryptoFailure, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short read from CSPRNG", ErrCryptoFailure)
	}
	return nil
}
