package backup

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Envelope wire format, offsets cumulative:
//
//	7 bytes  magic "DBACKUP"
//	1 byte   format version
//	4 bytes  wrapped-key length, unsigned big-endian (network order)
//	n bytes  wrapped key
//	16 bytes AES-CTR initialization vector
//	rest     ciphertext payload, unframed, streamed to end
//
// The length field endianness is a wire-format compatibility decision:
// big-endian, fixed here and relied on by every consumer of the artifact.
const (
	EnvelopeMagic   = "DBACKUP"
	EnvelopeVersion = 0x01

	// EnvelopeIVSize is the AES block size; the dump cipher runs in CTR mode
	EnvelopeIVSize = 16

	envelopeMagicSize  = 7
	envelopeKeyLenSize = 4
)

// EnvelopeHeader carries the metadata written ahead of the ciphertext payload
type EnvelopeHeader struct {
	Version    byte
	WrappedKey []byte
	IV         []byte
}

// Size returns the encoded header length in bytes
func (h *EnvelopeHeader) Size() int {
	return envelopeMagicSize + 1 + envelopeKeyLenSize + len(h.WrappedKey) + EnvelopeIVSize
}

// NewEnvelopeHeader builds a header for the current format version
func NewEnvelopeHeader(wrappedKey, iv []byte) (*EnvelopeHeader, error) {
	if len(wrappedKey) == 0 {
		return nil, NewValidationError("wrapped key is required", nil)
	}
	if len(iv) != EnvelopeIVSize {
		return nil, NewValidationError(fmt.Sprintf("initialization vector must be %d bytes", EnvelopeIVSize), nil)
	}
	return &EnvelopeHeader{
		Version:    EnvelopeVersion,
		WrappedKey: wrappedKey,
		IV:         iv,
	}, nil
}

// Encode serializes the header. Header bytes fully precede the payload and
// are never patched once written.
func (h *EnvelopeHeader) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, h.Size()))
	buf.WriteString(EnvelopeMagic)
	buf.WriteByte(h.Version)

	var keyLen [envelopeKeyLenSize]byte
	binary.BigEndian.PutUint32(keyLen[:], uint32(len(h.WrappedKey)))
	buf.Write(keyLen[:])

	buf.Write(h.WrappedKey)
	buf.Write(h.IV)
	return buf.Bytes()
}

// ParseEnvelopeHeader reads and validates a header from r, leaving the
// reader positioned at the first ciphertext byte.
func ParseEnvelopeHeader(r io.Reader) (*EnvelopeHeader, error) {
	magic := make([]byte, envelopeMagicSize)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, NewValidationError("failed to read envelope magic", err)
	}
	if string(magic) != EnvelopeMagic {
		return nil, NewValidationError(fmt.Sprintf("invalid envelope magic %q", magic), nil)
	}

	var version [1]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, NewValidationError("failed to read envelope version", err)
	}
	if version[0] != EnvelopeVersion {
		return nil, NewValidationError(fmt.Sprintf("unsupported envelope version %d", version[0]), nil)
	}

	var keyLen [envelopeKeyLenSize]byte
	if _, err := io.ReadFull(r, keyLen[:]); err != nil {
		return nil, NewValidationError("failed to read wrapped-key length", err)
	}
	n := binary.BigEndian.Uint32(keyLen[:])
	if n == 0 {
		return nil, NewValidationError("wrapped-key length cannot be zero", nil)
	}

	wrappedKey := make([]byte, n)
	if _, err := io.ReadFull(r, wrappedKey); err != nil {
		return nil, NewValidationError("failed to read wrapped key", err)
	}

	iv := make([]byte, EnvelopeIVSize)
	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, NewValidationError("failed to read initialization vector", err)
	}

	return &EnvelopeHeader{
		Version:    version[0],
		WrappedKey: wrappedKey,
		IV:         iv,
	}, nil
}
