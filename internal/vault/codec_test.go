package vault

import (
	"bytes"
	"testing"
)

func TestRecordHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := PasswordHeader{
		Name:        "email",
		PassSize:    12,
		CreateTime:  1700000000,
		RecordSize:  32,
		RecordStart: 64,
	}

	buf, err := encodeRecordHeader(h)
	if err != nil {
		t.Fatalf("encode failed: %s", err)
	}
	if len(buf) != recordHeaderPlainLen {
		t.Fatalf("got length %d, want %d", len(buf), recordHeaderPlainLen)
	}

	decoded, err := decodeRecordHeader(buf)
	if err != nil {
		t.Fatalf("decode failed: %s", err)
	}
	if decoded != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestRecordHeaderNameTooLong(t *testing.T) {
	_, err := encodeRecordHeader(PasswordHeader{Name: "this-name-is-most-definitely-too-long-to-fit"})
	if err == nil {
		t.Fatal("expected error for name exceeding 31 bytes")
	}
}

func TestDBHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := dbHeaderPlain{magic: magic, numRecords: 3, lastEdit: 1700000001}

	buf := encodeDBHeaderPlain(h)
	if len(buf) != dbHeaderPlainLen {
		t.Fatalf("got length %d, want %d", len(buf), dbHeaderPlainLen)
	}

	decoded, err := decodeDBHeaderPlain(buf)
	if err != nil {
		t.Fatalf("decode failed: %s", err)
	}
	if decoded != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestEncodeDecodeFullVaultRoundTrip(t *testing.T) {
	salt := make([]byte, SaltLen)
	iv := make([]byte, IVLen)
	for i := range salt {
		salt[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i + 1)
	}

	key, err := deriveKey("correct horse battery staple", salt)
	if err != nil {
		t.Fatalf("deriveKey failed: %s", err)
	}

	records := []PasswordHeader{
		{Name: "a", PassSize: 10, CreateTime: 1, RecordSize: 16, RecordStart: 0},
		{Name: "b", PassSize: 20, CreateTime: 2, RecordSize: 32, RecordStart: 16},
	}
	payload := make([]byte, 48)
	for i := range payload {
		payload[i] = byte(i)
	}

	dbh := dbHeaderPlain{magic: magic, numRecords: uint32(len(records)), lastEdit: 99}

	raw, err := encode(salt, iv, key, dbh, records, payload)
	if err != nil {
		t.Fatalf("encode failed: %s", err)
	}
	if len(raw)%BlockLen != 0 {
		t.Fatalf("encoded vault length %d is not block-aligned", len(raw))
	}

	decoded, decodedPayload, err := decode(raw, "correct horse battery staple")
	if err != nil {
		t.Fatalf("decode failed: %s", err)
	}

	if decoded.header.numRecords != dbh.numRecords {
		t.Fatalf("got %d records, want %d", decoded.header.numRecords, dbh.numRecords)
	}
	if len(decoded.records) != len(records) {
		t.Fatalf("got %d headers, want %d", len(decoded.records), len(records))
	}
	for i, want := range records {
		if decoded.records[i] != want {
			t.Fatalf("header %d mismatch: got %+v, want %+v", i, decoded.records[i], want)
		}
	}
	if !bytes.Equal(decodedPayload, payload) {
		t.Fatal("payload mismatch after round trip")
	}
}

func TestDecodeWrongPassphraseYieldsBadMagic(t *testing.T) {
	salt := make([]byte, SaltLen)
	iv := make([]byte, IVLen)

	key, err := deriveKey("right", salt)
	if err != nil {
		t.Fatalf("deriveKey failed: %s", err)
	}

	dbh := dbHeaderPlain{magic: magic, numRecords: 0, lastEdit: 1}
	raw, err := encode(salt, iv, key, dbh, nil, nil)
	if err != nil {
		t.Fatalf("encode failed: %s", err)
	}

	_, _, err = decode(raw, "wrong")
	if err != ErrBadMagic {
		t.Fatalf("got error %v, want ErrBadMagic", err)
	}
}

func TestDecodeBadFileSize(t *testing.T) {
	_, _, err := decode(make([]byte, 10), "whatever")
	if err != ErrBadFileSize {
		t.Fatalf("got error %v, want ErrBadFileSize", err)
	}
}
