package vault

import (
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	// SaltLen is the size, in bytes, of the random salt stored in the clear
	// at the head of every vault file.
	SaltLen = 32

	// KeyLen is the size, in bytes, of the AES-256 key derived from the
	// passphrase.
	KeyLen = 32

	// scryptN, scryptR and scryptP are the cost parameters used for every
	// vault ever created by this engine. Implementations that change these
	// produce files that cannot be opened by older ones; they must stay
	// fixed for file compatibility across every version of the format.
	scryptN = 262144
	scryptR = 8
	scryptP = 1
)

// deriveKey runs scrypt over passphrase with the vault's salt, producing the
// AES-256 key used for every CBC group in the file.
//
// The same (N, r, p, dkLen) tuple must be used on create and on every
// subsequent open; mismatches silently produce non-interoperable files
// rather than an explicit error, since the parameters themselves are not
// persisted.
func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, KeyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: key derivation failed: %s", ErrCryptoFailure, err)
	}
	return key, nil
}

// zeroize overwrites buf in place with zero bytes. It is called on every
// buffer that ever held key material, a decrypted header name, or a
// plaintext password, on every exit path including error paths.
func zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
