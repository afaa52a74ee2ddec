package backup

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeHeaderRoundTrip(t *testing.T) {
	wrappedKey := bytes.Repeat([]byte{0xAB}, 256)
	iv := bytes.Repeat([]byte{0x01}, EnvelopeIVSize)

	header, err := NewEnvelopeHeader(wrappedKey, iv)
	require.NoError(t, err)

	encoded := header.Encode()
	require.Len(t, encoded, header.Size())

	parsed, err := ParseEnvelopeHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, byte(EnvelopeVersion), parsed.Version)
	assert.Equal(t, wrappedKey, parsed.WrappedKey)
	assert.Equal(t, iv, parsed.IV)
}

func TestEnvelopeHeaderLayout(t *testing.T) {
	wrappedKey := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	iv := bytes.Repeat([]byte{0x02}, EnvelopeIVSize)

	header, err := NewEnvelopeHeader(wrappedKey, iv)
	require.NoError(t, err)
	encoded := header.Encode()

	assert.Equal(t, []byte(EnvelopeMagic), encoded[:7])
	assert.Equal(t, byte(EnvelopeVersion), encoded[7])
	assert.Equal(t, uint32(len(wrappedKey)), binary.BigEndian.Uint32(encoded[8:12]))
	assert.Equal(t, wrappedKey, encoded[12:16])
	assert.Equal(t, iv, encoded[16:])
}

func TestEnvelopeHeaderLeavesReaderAtPayload(t *testing.T) {
	header, err := NewEnvelopeHeader([]byte("key-material"), bytes.Repeat([]byte{0x03}, EnvelopeIVSize))
	require.NoError(t, err)

	payload := []byte("ciphertext follows the header")
	r := bytes.NewReader(append(header.Encode(), payload...))

	_, err = ParseEnvelopeHeader(r)
	require.NoError(t, err)

	rest := make([]byte, len(payload))
	_, err = r.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, payload, rest)
}

func TestNewEnvelopeHeaderValidation(t *testing.T) {
	iv := bytes.Repeat([]byte{0x04}, EnvelopeIVSize)

	_, err := NewEnvelopeHeader(nil, iv)
	assert.Error(t, err)

	_, err = NewEnvelopeHeader([]byte("key"), []byte("short-iv"))
	assert.Error(t, err)
}

func TestParseEnvelopeHeaderErrors(t *testing.T) {
	valid := func() []byte {
		h, err := NewEnvelopeHeader([]byte("wrapped-key"), bytes.Repeat([]byte{0x05}, EnvelopeIVSize))
		require.NoError(t, err)
		return h.Encode()
	}

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty input",
			data: nil,
		},
		{
			name: "wrong magic",
			data: append([]byte("NOTOURS"), valid()[7:]...),
		},
		{
			name: "unsupported version",
			data: func() []byte {
				d := valid()
				d[7] = 0x7F
				return d
			}(),
		},
		{
			name: "zero key length",
			data: func() []byte {
				d := valid()
				binary.BigEndian.PutUint32(d[8:12], 0)
				return d
			}(),
		},
		{
			name: "truncated wrapped key",
			data: valid()[:14],
		},
		{
			name: "truncated iv",
			data: func() []byte {
				d := valid()
				return d[:len(d)-4]
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelopeHeader(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Equal(t, JobErrorTypeValidation, AsJobError(err).Type)
		})
	}
}
