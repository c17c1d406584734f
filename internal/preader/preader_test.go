package preader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type constantPassphraseReader struct {
	constantPassphrase string
	callCount          int
}

func (r *constantPassphraseReader) ReadPassphrase() (string, error) {
	r.callCount++
	return r.constantPassphrase, nil
}

func TestCachingPassphraseReader_ReadsUpstreamOnce(t *testing.T) {
	upstream := &constantPassphraseReader{constantPassphrase: "phrase"}
	caching := NewCaching(upstream)

	phrase, err := caching.ReadPassphrase()
	assert.NoError(t, err)
	assert.Equal(t, "phrase", phrase)
	assert.Equal(t, 1, upstream.callCount)

	phrase, err = caching.ReadPassphrase()
	assert.NoError(t, err)
	assert.Equal(t, "phrase", phrase)
	assert.Equal(t, 1, upstream.callCount, "second read must not penetrate to upstream")
}

type erroringReader struct{}

func (r *erroringReader) ReadPassphrase() (string, error) {
	return "", assert.AnError
}

func TestCachingPassphraseReader_PropagatesUpstreamError(t *testing.T) {
	caching := NewCaching(&erroringReader{})

	_, err := caching.ReadPassphrase()
	assert.Error(t, err)
}
