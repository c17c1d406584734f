package vault

import (
	"encoding/binary"
	"fmt"
)

const (
	// magic is written as 4 little-endian bytes at offset 0 of the
	// (decrypted) db header.
	magic uint32 = 0xD00DBABE

	dbHeaderPlainLen     = 4 + 4 + 8 // magic, num_records, last_edit
	recordHeaderNameLen  = 32
	recordHeaderPlainLen = recordHeaderNameLen + 8 + 8 + 8 + 8 // name, pass_size, create_time, record_size, record_start

	// MaxRecords is the hard ceiling on the number of records a vault may
	// ever hold.
	MaxRecords = 1000
)

// dbHeaderPlain is the decoded, plaintext form of the 16-byte encrypted db
// header block.
type dbHeaderPlain struct {
	magic      uint32
	numRecords uint32
	lastEdit   uint64
}

func encodeDBHeaderPlain(h dbHeaderPlain) []byte {
	buf := make([]byte, dbHeaderPlainLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.numRecords)
	binary.LittleEndian.PutUint64(buf[8:16], h.lastEdit)
	return buf
}

func decodeDBHeaderPlain(buf []byte) (dbHeaderPlain, error) {
	if len(buf) != dbHeaderPlainLen {
		return dbHeaderPlain{}, fmt.Errorf("%w: db header has wrong length %d", ErrCryptoFailure, len(buf))
	}
	return dbHeaderPlain{
		magic:      binary.LittleEndian.Uint32(buf[0:4]),
		numRecords: binary.LittleEndian.Uint32(buf[4:8]),
		lastEdit:   binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// PasswordHeader is the decoded form of a 64-byte encrypted record header.
// Name is NUL-padded to 32 bytes on disk; the in-memory Name is the
// NUL-trimmed form.
type PasswordHeader struct {
	Name        string
	PassSize    uint64
	CreateTime  uint64
	RecordSize  uint64
	RecordStart uint64
}

func nameToRaw(name string) ([recordHeaderNameLen]byte, error) {
	var raw [recordHeaderNameLen]byte
	if len(name) > recordHeaderNameLen-1 {
		return raw, fmt.Errorf("%w: name %q exceeds %d bytes", ErrCryptoFailure, name, recordHeaderNameLen-1)
	}
	copy(raw[:], name)
	return raw, nil
}

func rawToName(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func encodeRecordHeader(h PasswordHeader) ([]byte, error) {
	raw, err := nameToRaw(h.Name)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, recordHeaderPlainLen)
	copy(buf[0:32], raw[:])
	binary.LittleEndian.PutUint64(buf[32:40], h.PassSize)
	binary.LittleEndian.PutUint64(buf[40:48], h.CreateTime)
	binary.LittleEndian.PutUint64(buf[48:56], h.RecordSize)
	binary.LittleEndian.PutUint64(buf[56:64], h.RecordStart)
	return buf, nil
}

func decodeRecordHeader(buf []byte) (PasswordHeader, error) {
	if len(buf) != recordHeaderPlainLen {
		return PasswordHeader{}, fmt.Errorf("%w: record header has wrong length %d", ErrCryptoFailure, len(buf))
	}
	return PasswordHeader{
		Name:        rawToName(buf[0:32]),
		PassSize:    binary.LittleEndian.Uint64(buf[32:40]),
		CreateTime:  binary.LittleEndian.Uint64(buf[40:48]),
		RecordSize:  binary.LittleEndian.Uint64(buf[48:56]),
		RecordStart: binary.LittleEndian.Uint64(buf[56:64]),
	}, nil
}

// decodedVault is the full result of decode: every section of the file,
// decrypted where applicable.
type decodedVault struct {
	salt    []byte
	iv      []byte
	key     []byte
	header  dbHeaderPlain
	records []PasswordHeader
}

// decode reads the on-disk vault layout out of raw, deriving the key from
// passphrase and the salt embedded in raw.
//
// Every encrypted section is its own independent CBC group re-seeded to iv,
// per the IV re-seed rule: the db header, then each record header in turn.
// The payload itself is NOT decrypted here — only record-level Get
// decrypts a single record's ciphertext slice, keeping plaintext passwords
// out of memory until they are actually requested.
func decode(raw []byte, passphrase string) (*decodedVault, []byte, error) {
	if len(raw)%BlockLen != 0 {
		return nil, nil, ErrBadFileSize
	}
	if len(raw) < SaltLen+IVLen+BlockLen {
		return nil, nil, ErrBadFileSize
	}

	salt := append([]byte(nil), raw[0:SaltLen]...)
	iv := append([]byte(nil), raw[SaltLen:SaltLen+IVLen]...)

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, nil, err
	}

	cursor := SaltLen + IVLen

	dbHeaderCipher := raw[cursor : cursor+BlockLen]
	cursor += BlockLen

	dbHeaderPlainBytes, err := cbcDecryptGroup(key, iv, dbHeaderCipher)
	if err != nil {
		zeroize(key)
		return nil, nil, err
	}

	dbh, err := decodeDBHeaderPlain(dbHeaderPlainBytes)
	zeroize(dbHeaderPlainBytes)
	if err != nil {
		zeroize(key)
		return nil, nil, err
	}
	if dbh.magic != magic {
		zeroize(key)
		return nil, nil, ErrBadMagic
	}

	if dbh.numRecords > MaxRecords {
		zeroize(key)
		return nil, nil, fmt.Errorf("%w: on-disk record count %d exceeds limit", ErrBadFileSize, dbh.numRecords)
	}

	records := make([]PasswordHeader, 0, dbh.numRecords)
	for i := uint32(0); i < dbh.numRecords; i++ {
		need := cursor + recordHeaderPlainLen
		if need > len(raw) {
			zeroize(key)
			return nil, nil, ErrBadFileSize
		}
		recHeaderCipher := raw[cursor:need]
		cursor = need

		recHeaderPlainBytes, err := cbcDecryptGroup(key, iv, recHeaderCipher)
		if err != nil {
			zeroize(key)
			return nil, nil, err
		}
		rh, err := decodeRecordHeader(recHeaderPlainBytes)
		zeroize(recHeaderPlainBytes)
		if err != nil {
			zeroize(key)
			return nil, nil, err
		}
		if rh.RecordSize%BlockLen != 0 {
			zeroize(key)
			return nil, nil, fmt.Errorf("%w: record %q has misaligned size %d", ErrBadFileSize, rh.Name, rh.RecordSize)
		}
		records = append(records, rh)
	}

	payload := append([]byte(nil), raw[cursor:]...)

	var wantPayload uint64
	for _, rh := range records {
		wantPayload += rh.RecordSize
	}
	if uint64(len(payload)) != wantPayload {
		zeroize(key)
		return nil, nil, fmt.Errorf("%w: payload size %d does not match header sum %d", ErrBadFileSize, len(payload), wantPayload)
	}

	return &decodedVault{
		salt:    salt,
		iv:      iv,
		key:     key,
		header:  dbh,
		records: records,
	}, payload, nil
	// note: key ownership passes to the caller (Handle, on success) from
	// this point on; every error path above zeroizes it first.
}

// encode serializes salt, iv, the db header and every record header +
// payload into the on-disk byte layout, in the mandatory write order:
// salt, iv, db_header, record_headers (index order), payload.
func encode(salt, iv, key []byte, dbh dbHeaderPlain, records []PasswordHeader, payload []byte) ([]byte, error) {
	dbHeaderPlainBytes := encodeDBHeaderPlain(dbh)
	dbHeaderCipher, err := cbcEncryptGroup(key, iv, dbHeaderPlainBytes)
	zeroize(dbHeaderPlainBytes)
	if err != nil {
		return nil, err
	}

	recordHeaderCipher := make([][]byte, len(records))
	for i, rh := range records {
		plainBytes, err := encodeRecordHeader(rh)
		if err != nil {
			return nil, err
		}
		cipherBytes, err := cbcEncryptGroup(key, iv, plainBytes)
		zeroize(plainBytes)
		if err != nil {
			return nil, err
		}
		recordHeaderCipher[i] = cipherBytes
	}

	total := SaltLen + IVLen + len(dbHeaderCipher)
	for _, c := range recordHeaderCipher {
		total += len(c)
	}
	total += len(payload)

	out := make([]byte, 0, total)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, dbHeaderCipher...)
	for _, c := range recordHeaderCipher {
		out = append(out, c...)
	}
	out = append(out, payload...)

	return out, nil
}
