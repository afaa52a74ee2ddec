package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// uploadedPart captures one UploadPart call made against the mock backend
type uploadedPart struct {
	PartNumber int64
	PartHash   string
	Body       []byte
	Size       int64
}

// mockUploadBackend records calls and injects failures by phase or part number
type mockUploadBackend struct {
	mu sync.Mutex

	openErr     error
	completeErr error
	failAtPart  int64
	partErr     error

	openCalls     int
	completeCalls int
	parts         []uploadedPart
	completedWith *Record
}

func (m *mockUploadBackend) Open(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.openErr != nil {
		return m.openErr
	}
	if record.UploadID == "" {
		record.UploadID = "mock-upload-id"
	}
	return nil
}

func (m *mockUploadBackend) UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAtPart != 0 && partNumber == m.failAtPart {
		if m.partErr != nil {
			return "", m.partErr
		}
		return "", NewNetworkError(fmt.Sprintf("part %d rejected", partNumber), nil)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.parts = append(m.parts, uploadedPart{
		PartNumber: partNumber,
		PartHash:   partHash,
		Body:       data,
		Size:       size,
	})
	return fmt.Sprintf("etag-%d", partNumber), nil
}

func (m *mockUploadBackend) Complete(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completedWith = record
	return nil
}

// uploadedBytes reassembles the full artifact from the captured parts
func (m *mockUploadBackend) uploadedBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var buf bytes.Buffer
	for _, p := range m.parts {
		buf.Write(p.Body)
	}
	return buf.Bytes()
}

// mockDumper implements Dumper over a fixed payload
type mockDumper struct {
	payload    []byte
	wrappedKey []byte
	iv         []byte

	checkErr error
	keysErr  error
	dumpErr  error

	// stream overrides the default payload reader when set
	stream io.ReadCloser
}

func newMockDumper(payload []byte) *mockDumper {
	return &mockDumper{
		payload:    payload,
		wrappedKey: bytes.Repeat([]byte{0xAA}, 256),
		iv:         bytes.Repeat([]byte{0x11}, EnvelopeIVSize),
	}
}

func (d *mockDumper) Check(ctx context.Context) error {
	return d.checkErr
}

func (d *mockDumper) PrepareKeys(ctx context.Context) ([]byte, error) {
	if d.keysErr != nil {
		return nil, d.keysErr
	}
	return d.wrappedKey, nil
}

func (d *mockDumper) Dump(ctx context.Context) (io.ReadCloser, []byte, error) {
	if d.dumpErr != nil {
		return nil, nil, d.dumpErr
	}
	if d.stream != nil {
		return d.stream, d.iv, nil
	}
	return io.NopCloser(bytes.NewReader(d.payload)), d.iv, nil
}

// envelopeBytes is the exact artifact a successful job should upload
func (d *mockDumper) envelopeBytes() []byte {
	header, _ := NewEnvelopeHeader(d.wrappedKey, d.iv)
	return append(header.Encode(), d.payload...)
}

func sha256Hex(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
