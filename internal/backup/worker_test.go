package backup

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "-----BEGIN PUBLIC KEY-----\nMIIB...\n-----END PUBLIC KEY-----"

func selfManagedConfig() *JobConfig {
	return &JobConfig{
		Tier:    TierSelfManaged,
		AgentID: "agent-test",
		Database: DatabaseConfig{
			Host:     "localhost",
			Username: "backup",
			Password: "secret",
			Database: "appdb",
		},
		PublicKeyPEM: testPublicKey,
		Storage: &StorageConfig{
			Provider: StorageProviderS3,
			S3: &S3Config{
				Bucket:    "backups",
				Region:    "us-east-1",
				AccessKey: "AKIATEST",
				SecretKey: "secret",
			},
		},
		PartSize: 1024,
	}
}

func managedConfig() *JobConfig {
	config := selfManagedConfig()
	config.Tier = TierManaged
	config.Storage = nil
	config.ControlPlane = &ControlPlaneConfig{
		BaseURL: "https://control.example.com",
		APIKey:  "key",
	}
	return config
}

func TestWorkerSuccess(t *testing.T) {
	payload := make([]byte, 2*1024+512)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	dumper := newMockDumper(payload)
	backend := &mockUploadBackend{}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.True(t, result.Succeeded())
	require.Nil(t, result.Err)
	assert.Equal(t, StateSucceeded, result.Record.State)

	// The uploaded artifact is the envelope: header bytes then ciphertext
	envelope := dumper.envelopeBytes()
	assert.Equal(t, envelope, backend.uploadedBytes())

	// The content hash covers every envelope byte, header included
	assert.Equal(t, sha256Hex(envelope), result.Record.ContentHash)

	// Parts are numbered 1..N with no gaps
	for i, p := range result.Record.Parts {
		assert.Equal(t, int64(i+1), p.PartNumber)
	}

	// Finalize ran exactly once, after the record was frozen
	assert.Equal(t, 1, backend.completeCalls)
	require.NotNil(t, backend.completedWith)
	assert.Equal(t, result.Record.ContentHash, backend.completedWith.ContentHash)
}

func TestWorkerDerivesObjectName(t *testing.T) {
	dumper := newMockDumper([]byte("dump"))
	backend := &mockUploadBackend{}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.True(t, result.Succeeded())
	assert.True(t, strings.HasPrefix(result.Record.ObjectName, "backup_appdb_"))
}

func TestWorkerKeepsSeededObjectName(t *testing.T) {
	dumper := newMockDumper([]byte("dump"))
	backend := &mockUploadBackend{}
	worker := NewWorker(managedConfig(), dumper, backend, nil)

	record := NewRecord()
	record.Seed("backup_appdb_010120260000", "controller-upload-id")
	result := worker.Run(context.Background(), record)

	require.True(t, result.Succeeded())
	assert.Equal(t, "backup_appdb_010120260000", result.Record.ObjectName)
	assert.Equal(t, "controller-upload-id", result.Record.UploadID)
}

func TestWorkerContentHashIsChunkInvariant(t *testing.T) {
	payload := make([]byte, 5*1024+99)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	runWith := func(stream io.ReadCloser) Result {
		dumper := newMockDumper(payload)
		dumper.stream = stream
		worker := NewWorker(selfManagedConfig(), dumper, &mockUploadBackend{}, nil)
		return worker.Run(context.Background(), nil)
	}

	whole := runWith(io.NopCloser(bytes.NewReader(payload)))
	trickled := runWith(io.NopCloser(&erraticReader{
		data:  append([]byte(nil), payload...),
		sizes: []int{1, 3, 1024, 7},
	}))

	require.True(t, whole.Succeeded())
	require.True(t, trickled.Succeeded())
	assert.Equal(t, whole.Record.ContentHash, trickled.Record.ContentHash)
}

func TestWorkerUploadFailureAborts(t *testing.T) {
	payload := make([]byte, 5*1024)
	dumper := newMockDumper(payload)
	backend := &mockUploadBackend{failAtPart: 2}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.Equal(t, StateFailed, result.Record.State)
	assert.Equal(t, JobErrorTypeNetwork, result.Err.Type)

	// Only the part before the failure was acknowledged; nothing after the
	// failed part was attempted, and the job was never finalized.
	assert.Len(t, backend.parts, 1)
	assert.Equal(t, 0, backend.completeCalls)
}

func TestWorkerCheckFailureIsTerminal(t *testing.T) {
	dumper := newMockDumper([]byte("dump"))
	dumper.checkErr = NewPreconditionError("mysqldump not found on PATH", nil)
	backend := &mockUploadBackend{}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.Equal(t, JobErrorTypePrecondition, result.Err.Type)
	assert.Equal(t, 0, backend.openCalls)

	payload := result.ErrorPayload()
	assert.True(t, strings.HasPrefix(payload, "PRECONDITION_ERROR\n"))
	assert.Contains(t, payload, "Idle")
	assert.Contains(t, payload, "Failed")
}

func TestWorkerKeyFailureIsTerminal(t *testing.T) {
	dumper := newMockDumper([]byte("dump"))
	dumper.keysErr = NewKeyGenerationError("failed to wrap symmetric key", nil)
	backend := &mockUploadBackend{}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.Equal(t, JobErrorTypeKeyGeneration, result.Err.Type)
	assert.Equal(t, 0, backend.openCalls)
}

func TestWorkerTruncatedStreamFails(t *testing.T) {
	dumper := newMockDumper(nil)
	dumper.stream = io.NopCloser(io.MultiReader(
		strings.NewReader("partial dump output"),
		errReader{io.ErrUnexpectedEOF},
	))
	backend := &mockUploadBackend{}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.Equal(t, 0, backend.completeCalls)
}

func TestWorkerCompleteFailure(t *testing.T) {
	dumper := newMockDumper([]byte("dump"))
	backend := &mockUploadBackend{completeErr: NewNetworkError("finish rejected", nil).WithResponse("upload expired")}
	worker := NewWorker(selfManagedConfig(), dumper, backend, nil)

	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.True(t, strings.HasPrefix(result.ErrorPayload(), "upload expired\n"))
}

func TestWorkerInvalidConfig(t *testing.T) {
	config := selfManagedConfig()
	config.Storage = nil

	worker := NewWorker(config, newMockDumper(nil), &mockUploadBackend{}, nil)
	result := worker.Run(context.Background(), nil)

	require.False(t, result.Succeeded())
	assert.Equal(t, JobErrorTypeValidation, result.Err.Type)
}
