package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type constantPassphraseReader struct {
	passphrase string
	callCount  int
}

func (r *constantPassphraseReader) ReadPassphrase() (string, error) {
	r.callCount++
	return r.passphrase, nil
}

func TestCreateListAddGetRemoveEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	pr := &constantPassphraseReader{passphrase: "correct horse battery staple"}

	assert.NoError(t, doCreate(path, pr))
	assert.NoError(t, doInfo(path, pr))

	// Empty vault: List prints "(no records)" rather than erroring.
	assert.NoError(t, doList(path, pr))

	assert.NoError(t, doAdd(path, "email", 12, 1, pr))
	assert.NoError(t, doList(path, pr))
	assert.NoError(t, doGet(path, "email", pr))

	assert.NoError(t, doRemove(path, "email", pr))

	err := doGet(path, "email", pr)
	assert.Error(t, err, "getting a removed record must fail")
}

func TestOpenWithWrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	assert.NoError(t, doCreate(path, &constantPassphraseReader{passphrase: "right"}))

	err := doInfo(path, &constantPassphraseReader{passphrase: "wrong"})
	assert.Error(t, err)
}

func TestAddWithCountGeneratesNumberedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	pr := &constantPassphraseReader{passphrase: "x"}

	assert.NoError(t, doCreate(path, pr))
	assert.NoError(t, doAdd(path, "batch", 8, 3, pr))

	assert.NoError(t, doGet(path, "batch-1", pr))
	assert.NoError(t, doGet(path, "batch-2", pr))
	assert.NoError(t, doGet(path, "batch-3", pr))
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	pr := &constantPassphraseReader{passphrase: "x"}

	assert.NoError(t, doCreate(path, pr))
	assert.Error(t, doCreate(path, pr))
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
