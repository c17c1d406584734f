package vault

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

const (
	// MinPassSize and MaxPassSize bound the character length a caller may
	// request for a generated password.
	MinPassSize = 1
	MaxPassSize = 10000

	// printableLo and printableSpan bound the alphabet used by the biased
	// byte-to-printable-ASCII mapping below: space (0x20) through '}'
	// (0x7D), deliberately excluding '~'. This alphabet, and the mapping's
	// bias, must be preserved exactly for compatibility with vaults
	// produced by this (and the original) engine — see the mapping note
	// on generatePassword.
	printableLo   = 0x20
	printableSpan = 0x7E - 0x20 // == 0x5E; alphabet is [0x20, 0x7D]
)

// blockLen returns the smallest multiple of BlockLen that can hold passSize
// characters plus a mandatory NUL terminator.
func blockLen(passSize int) int {
	total := passSize + 1
	return ((total + BlockLen - 1) / BlockLen) * BlockLen
}

// generatePassword produces block_len bytes: the first passSize bytes are
// mapped into the printable-ASCII range [0x20, 0x7D], the remainder is NUL.
//
// The mapping `b := (b mod printableSpan) + printableLo` operates on
// unsigned bytes and is not rejection sampling: it induces a slight bias
// toward the low end of the alphabet. That bias is an accepted simplicity
// trade-off for passwords bounded at MaxPassSize characters and must not be
// "fixed" by implementers, since doing so would silently change the
// generated password distribution (not the file format, but still a
// behavioral break from every other implementation of this engine).
func generatePassword(passSize int) ([]byte, int, error) {
	if passSize < MinPassSize || passSize > MaxPassSize {
		return nil, 0, fmt.Errorf("%w: pass_size %d out of range [%d, %d]", ErrCryptoFailure, passSize, MinPassSize, MaxPassSize)
	}

	n := blockLen(passSize)
	buf := make([]byte, n)
	if err := randomize(buf); err != nil {
		return nil, 0, err
	}

	for i := 0; i < passSize; i++ {
		buf[i] = (buf[i] % printableSpan) + printableLo
	}
	for i := passSize; i < n; i++ {
		buf[i] = 0
	}

	return buf, n, nil
}

// GenerateCandidates produces n independent password buffers of the given
// character length, one per element of the returned slice, in parallel.
//
// This exists to serve batch adds (a caller that wants to insert several
// records in one pass can generate every candidate's plaintext up front,
// then add each one in turn): the vault handle itself remains
// single-threaded and mutates its header list and payload buffer on the
// caller's goroutine only, one record at a time. GenerateCandidates bounds
// concurrent CSPRNG draws with a semaphore of width 4 so a large n cannot
// exhaust file descriptors or flood /dev/urandom contention on constrained
// hosts.
func GenerateCandidates(ctx context.Context, n int, passSize int) ([][]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: candidate count must be positive; got %d", ErrCryptoFailure, n)
	}

	const maxConcurrency = 4
	sem := semaphore.NewWeighted(maxConcurrency)

	results := make([][]byte, n)
	errs := make([]error, n)

	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCryptoFailure, err)
		}
		go func() {
			defer sem.Release(1)
			buf, _, err := generatePassword(passSize)
			results[i] = buf
			errs[i] = err
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	for _, err := range errs {
		if err != nil {
			for _, buf := range results {
				zeroize(buf)
			}
			return nil, err
		}
	}
	return results, nil
}
