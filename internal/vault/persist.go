package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWrite writes data to path via a sibling temp file that is fsync'd
// and renamed into place: the result is either the old file or the
// fully-written new file, never a half-written one, assuming a correctly
// functioning filesystem.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "vaultbox-tmp-")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %s", ErrFileOpen, err)
	}
	tmpName := tmp.Name()

	removeTemp := func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		removeTemp()
		return fmt.Errorf("%w: failed to write temp file: %s", ErrFileOpen, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		removeTemp()
		return fmt.Errorf("%w: failed to sync temp file: %s", ErrFileOpen, err)
	}

	if err := tmp.Close(); err != nil {
		removeTemp()
		return fmt.Errorf("%w: failed to close temp file: %s", ErrFileOpen, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		removeTemp()
		return fmt.Errorf("%w: failed to rename temp file into place: %s", ErrFileOpen, err)
	}

	return nil
}

// writeHandle re-emits the full vault file from the handle's current
// in-memory state: every add/delete performs a full persistence pass before
// returning success, and there is no partial rewrite.
//
// h.lastEdit is only assigned once the write has actually committed to
// disk: a failed encode or atomicWrite must leave the handle exactly as it
// was before the call, including its last-edit timestamp.
func writeHandle(h *Handle, now uint64) error {
	dbh := dbHeaderPlain{
		magic:      magic,
		numRecords: uint32(len(h.records)),
		lastEdit:   now,
	}

	raw, err := encode(h.salt, h.iv, h.key, dbh, h.records, h.payload)
	if err != nil {
		return err
	}

	if err := atomicWrite(h.filename, raw); err != nil {
		return err
	}

	h.lastEdit = now
	return nil
}
