package vault

import (
	"fmt"
	"os"
	"time"
)

// Handle is the in-memory, mutable model of an opened vault. It exclusively
// owns the filename, salt, IV, derived key, decoded record headers and the
// contiguous (still-encrypted) payload buffer. Close must be called on
// every exit path to zeroize key material and release decrypted names.
type Handle struct {
	filename string
	salt     []byte
	iv       []byte
	key      []byte

	lastEdit uint64
	records  []PasswordHeader
	payload  []byte

	closed bool
}

// RecordInfo is the read-only summary returned by List.
type RecordInfo struct {
	Name       string
	PassSize   uint64
	CreateTime time.Time
}

func nowUnix() uint64 {
	return uint64(time.Now().Unix())
}

// Create initializes a brand-new vault at path. It refuses if path already
// exists.
func Create(path string, passphrase string) (*Handle, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrFileExists
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileOpen, err)
	}

	salt := make([]byte, SaltLen)
	if err := randomize(salt); err != nil {
		return nil, err
	}
	iv := make([]byte, IVLen)
	if err := randomize(iv); err != nil {
		return nil, err
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		filename: path,
		salt:     salt,
		iv:       iv,
		key:      key,
		lastEdit: nowUnix(),
		records:  nil,
		payload:  nil,
	}

	if err := writeHandle(h, nowUnix()); err != nil {
		zeroize(h.key)
		return nil, err
	}

	return h, nil
}

// Open loads an existing vault at path, decrypting and validating the db
// header with the key derived from passphrase.
func Open(path string, passphrase string) (*Handle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %s", ErrFileOpen, err)
	}

	decoded, payload, err := decode(raw, passphrase)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		filename: path,
		salt:     decoded.salt,
		iv:       decoded.iv,
		key:      decoded.key,
		lastEdit: decoded.header.lastEdit,
		records:  decoded.records,
		payload:  payload,
	}

	return h, nil
}

func matchName(a, b string) bool {
	return a == b
}

func (h *Handle) indexOf(name string) int {
	for i, rh := range h.records {
		if matchName(rh.Name, name) {
			return i
		}
	}
	return -1
}

// Add generates a fresh password of passSize characters, encrypts it as a
// single independent CBC group, appends it to the payload and a matching
// header to the header list, then persists the whole vault.
func (h *Handle) Add(name string, passSize int) error {
	plain, _, err := generatePassword(passSize)
	if err != nil {
		return err
	}
	defer zeroize(plain)

	return h.addPlain(name, plain, passSize)
}

// AddWithPassword inserts a record using an already-generated plaintext
// buffer instead of generating one internally. plain must be exactly
// blockLen(passSize) bytes, printable-ASCII for its first passSize bytes
// and NUL for the remainder, i.e. exactly what generatePassword(passSize)
// would have produced. This lets callers that need many records at once
// generate the candidate buffers up front (see GenerateCandidates) and
// then add each one without paying generatePassword's cost twice.
func (h *Handle) AddWithPassword(name string, plain []byte, passSize int) error {
	if passSize < MinPassSize || passSize > MaxPassSize {
		return fmt.Errorf("%w: pass_size %d out of range [%d, %d]", ErrCryptoFailure, passSize, MinPassSize, MaxPassSize)
	}
	if len(plain) != blockLen(passSize) {
		return fmt.Errorf("%w: candidate buffer length %d does not match expected %d for pass_size %d", ErrCryptoFailure, len(plain), blockLen(passSize), passSize)
	}

	return h.addPlain(name, plain, passSize)
}

// addPlain is the shared core of Add and AddWithPassword: it validates
// uniqueness and capacity, encrypts plain as a single independent CBC
// group, appends it to the payload and a matching header to the header
// list, then persists the whole vault.
func (h *Handle) addPlain(name string, plain []byte, passSize int) error {
	if h.indexOf(name) >= 0 {
		return ErrRecordExists
	}
	if len(h.records) >= MaxRecords {
		return ErrRecordLimitReached
	}

	cipherBytes, err := cbcEncryptGroup(h.key, h.iv, plain)
	if err != nil {
		return err
	}

	newHeader := PasswordHeader{
		Name:        name,
		PassSize:    uint64(passSize),
		CreateTime:  nowUnix(),
		RecordSize:  uint64(len(plain)),
		RecordStart: uint64(len(h.payload)),
	}

	savedRecords := h.records
	savedPayload := h.payload

	h.records = append(append([]PasswordHeader(nil), h.records...), newHeader)
	h.payload = append(append([]byte(nil), h.payload...), cipherBytes...)

	if err := writeHandle(h, nowUnix()); err != nil {
		h.records = savedRecords
		h.payload = savedPayload
		return err
	}

	return nil
}

// Delete removes the named record's ciphertext range from the payload and
// its header from the list, re-normalizing every subsequent header's
// RecordStart so offsets stay contiguous from zero. It then persists the
// whole vault.
//
// The new payload is built by copying the prefix to [0, record_start) and
// the suffix to [record_start, old_size - record_size) into a fresh
// buffer — copying both ranges to offset 0 in place would overwrite the
// prefix before it's been fully read.
func (h *Handle) Delete(name string) error {
	idx := h.indexOf(name)
	if idx < 0 {
		return ErrRecordNotFound
	}

	removed := h.records[idx]
	start := removed.RecordStart
	end := start + removed.RecordSize

	newPayload := make([]byte, 0, len(h.payload)-int(removed.RecordSize))
	newPayload = append(newPayload, h.payload[:start]...)
	newPayload = append(newPayload, h.payload[end:]...)

	newRecords := make([]PasswordHeader, 0, len(h.records)-1)
	for i, rh := range h.records {
		if i == idx {
			continue
		}
		if rh.RecordStart > start {
			rh.RecordStart -= removed.RecordSize
		}
		newRecords = append(newRecords, rh)
	}

	savedRecords := h.records
	savedPayload := h.payload

	h.records = newRecords
	h.payload = newPayload

	if err := writeHandle(h, nowUnix()); err != nil {
		h.records = savedRecords
		h.payload = savedPayload
		return err
	}

	return nil
}

// Get decrypts and returns the named record's plaintext: the first
// PassSize bytes are the password, the remainder up to RecordSize is NUL
// padding. The caller is expected to zeroize the returned buffer after use.
func (h *Handle) Get(name string) ([]byte, error) {
	idx := h.indexOf(name)
	if idx < 0 {
		return nil, ErrRecordNotFound
	}
	rh := h.records[idx]

	cipherBytes := h.payload[rh.RecordStart : rh.RecordStart+rh.RecordSize]
	plain, err := cbcDecryptGroup(h.key, h.iv, cipherBytes)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// List enumerates every record in declaration order. It returns ErrNoRecords
// if the vault is empty.
func (h *Handle) List() ([]RecordInfo, error) {
	if len(h.records) == 0 {
		return nil, ErrNoRecords
	}
	out := make([]RecordInfo, len(h.records))
	for i, rh := range h.records {
		out[i] = RecordInfo{
			Name:       rh.Name,
			PassSize:   rh.PassSize,
			CreateTime: time.Unix(int64(rh.CreateTime), 0).UTC(),
		}
	}
	return out, nil
}

// Info returns the vault's filename, record count and last-edit time.
func (h *Handle) Info() (filename string, numRecords int, lastEdit time.Time) {
	return h.filename, len(h.records), time.Unix(int64(h.lastEdit), 0).UTC()
}

// Close zeroizes the key, salt, IV and payload buffer and drops the decoded
// record headers. Record names are Go strings: Close releases them but does
// not overwrite their bytes. It is safe to call more than once.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	zeroize(h.key)
	zeroize(h.salt)
	zeroize(h.iv)
	for i := range h.records {
		h.records[i].Name = ""
	}
	h.records = nil
	zeroize(h.payload)
	h.payload = nil
	h.closed = true
}
