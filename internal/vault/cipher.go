package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// IVLen is the size, in bytes, of the vault IV stored in the clear.
	IVLen = 16

	// BlockLen is the AES block size, and therefore the unit every
	// encrypted section's length must be a multiple of.
	BlockLen = aes.BlockSize
)

// cbcEncryptGroup encrypts plaintext as one independent AES-256-CBC stream
// seeded from iv. "Independent" means the cipher state is re-seeded to iv
// before this call, regardless of what other sections have already been
// encrypted with the same key — the db header, each record header and each
// record payload are each their own CBC chain starting from the same IV.
//
// len(plaintext) must already be a multiple of BlockLen; callers are
// responsible for padding (the db header and record headers are fixed-size,
// and record payloads are pre-padded by the generator).
func cbcEncryptGroup(key, iv, plaintext []byte) ([]byte, error) {
	if len(plaintext)%BlockLen != 0 {
		return nil, fmt.Errorf("%w: plaintext length %d is not a multiple of the block size", ErrCryptoFailure, len(plaintext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCryptoFailure, err)
	}

	ivCopy := make([]byte, len(iv))
	copy(ivCopy, iv)

	ciphertext := make([]byte, len(plaintext))
	mode := cipher.NewCBCEncrypter(block, ivCopy)
	mode.CryptBlocks(ciphertext, plaintext)

	return ciphertext, nil
}

// cbcDecryptGroup is the inverse of cbcEncryptGroup: it re-seeds the cipher
// to iv and decrypts ciphertext as a single independent CBC stream.
func cbcDecryptGroup(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%BlockLen != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrCryptoFailure, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCryptoFailure, err)
	}

	ivCopy := make([]byte, len(iv))
	copy(ivCopy, iv)

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, ivCopy)
	mode.CryptBlocks(plaintext, ciphertext)

	return plaintext, nil
}
