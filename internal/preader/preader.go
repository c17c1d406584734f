// Package preader reads the master passphrase from the controlling
// terminal (with no echo) or, for non-interactive use, from stdin.
package preader

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// maxPromptBytes bounds the non-terminal stdin read purely as input hygiene;
// the no-echo terminal read is not bounded by it.
const maxPromptBytes = 4096

// PassphraseReader reads a single passphrase.
type PassphraseReader interface {
	ReadPassphrase() (string, error)
}

// StdinPassphraseReader reads from the controlling terminal when one is
// attached, falling back to stdin otherwise.
type StdinPassphraseReader struct{}

func (r *StdinPassphraseReader) ReadPassphrase() (string, error) {
	if terminal.IsTerminal(0) {
		_, err := fmt.Fprint(os.Stderr, "Passphrase (vaultbox): ")
		if err != nil {
			return "", err
		}
		phrase, err := terminal.ReadPassword(0)
		if err != nil {
			return "", fmt.Errorf("failure reading passphrase: %s", err)
		}
		return string(phrase), nil
	}

	// Undocumented support for reading the passphrase from stdin when it
	// isn't a terminal (e.g. under test or when piped). No real input
	// validation happens here; the caller is trusted to supply a sane
	// passphrase.
	data, err := io.ReadAll(io.LimitReader(bufio.NewReader(os.Stdin), maxPromptBytes))
	if err != nil {
		return "", fmt.Errorf("failure reading passphrase from stdin: %s", err)
	}
	return string(data), nil
}

// CachingPassphraseReader wraps a PassphraseReader, reading the upstream
// reader at most once and returning the cached value on every subsequent
// call. Useful for flows that need the same passphrase more than once (for
// example, confirming an existing passphrase before re-encrypting) while
// still lazily deferring the first prompt.
type CachingPassphraseReader struct {
	Upstream         PassphraseReader
	cachedPassphrase string
	cached           bool
}

// NewCaching wraps upstream in a CachingPassphraseReader.
func NewCaching(upstream PassphraseReader) *CachingPassphraseReader {
	return &CachingPassphraseReader{Upstream: upstream}
}

func (r *CachingPassphraseReader) ReadPassphrase() (string, error) {
	if !r.cached {
		cached, err := r.Upstream.ReadPassphrase()
		if err != nil {
			return "", err
		}
		r.cachedPassphrase = cached
		r.cached = true
	}
	return r.cachedPassphrase, nil
}
