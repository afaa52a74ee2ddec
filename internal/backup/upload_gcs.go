package backup

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploadBackend implements UploadBackend against Google Cloud Storage
// for the self-managed tier. GCS has no client-visible multipart API;
// parts stream into one resumable-session writer whose chunk size matches
// the part size, and the server concatenates them. Part ETags are
// synthetic (the part hash) since GCS acknowledges the session, not the
// individual part.
type GCSUploadBackend struct {
	client   *storage.Client
	bucket   string
	partSize int64

	// session state, set by Open; one backend instance serves one job
	object *storage.ObjectHandle
	writer *storage.Writer
}

// NewGCSUploadBackend creates a new GCSUploadBackend instance
func NewGCSUploadBackend(ctx context.Context, config *GCSConfig, partSize int64) (*GCSUploadBackend, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid GCS storage configuration", err)
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Default credentials from the environment or metadata server
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewNetworkError("failed to create GCS client", err)
	}

	return &GCSUploadBackend{
		client:   client,
		bucket:   config.Bucket,
		partSize: partSize,
	}, nil
}

// Open starts the resumable session for the record's object name
func (b *GCSUploadBackend) Open(ctx context.Context, record *Record) error {
	b.object = b.client.Bucket(b.bucket).Object(record.ObjectName)
	b.writer = b.object.NewWriter(ctx)
	b.writer.ChunkSize = int(b.partSize)
	b.writer.ContentType = "application/octet-stream"
	return nil
}

// UploadPart streams one part into the resumable session
func (b *GCSUploadBackend) UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (string, error) {
	n, err := io.Copy(b.writer, body)
	if err != nil {
		return "", NewNetworkError(fmt.Sprintf("failed to write part %d to resumable session", partNumber), err)
	}
	if n != size {
		return "", NewNetworkError(fmt.Sprintf("short write for part %d: %d of %d bytes", partNumber, n, size), nil)
	}
	return partHash, nil
}

// Complete closes the resumable session and records the final content hash
// as object metadata.
func (b *GCSUploadBackend) Complete(ctx context.Context, record *Record) error {
	if err := b.writer.Close(); err != nil {
		return NewNetworkError("failed to finalize resumable session", err)
	}
	_, err := b.object.Update(ctx, storage.ObjectAttrsToUpdate{
		Metadata: map[string]string{"content_hash": record.ContentHash},
	})
	if err != nil {
		return NewNetworkError("failed to record content hash on object", err)
	}
	return nil
}
