package backup

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3PresignTTL is how long a part's pre-signed URL stays valid
const s3PresignTTL = 15 * time.Minute

// S3UploadBackend implements UploadBackend against Amazon S3 for the
// self-managed tier. The worker owns the multipart session: Open creates
// it, each part gets a pre-signed URL keyed by part number and part hash,
// and Complete closes the session with the ordered part list.
type S3UploadBackend struct {
	client     *s3.S3
	httpClient *http.Client
	bucket     string

	// session state, set by Open; one backend instance serves one job
	objectName string
	uploadID   string
}

// NewS3UploadBackend creates a new S3UploadBackend instance
func NewS3UploadBackend(config *S3Config) (*S3UploadBackend, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid S3 storage configuration", err)
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		),
	})
	if err != nil {
		return nil, NewNetworkError("failed to create AWS session", err)
	}

	return &S3UploadBackend{
		client:     s3.New(sess),
		httpClient: newPartHTTPClient(),
		bucket:     config.Bucket,
	}, nil
}

// Open starts the multipart session for the record's object name
func (b *S3UploadBackend) Open(ctx context.Context, record *Record) error {
	out, err := b.client.CreateMultipartUploadWithContext(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(record.ObjectName),
	})
	if err != nil {
		return NewNetworkError("failed to open multipart upload session", err)
	}
	record.UploadID = aws.StringValue(out.UploadId)
	b.objectName = record.ObjectName
	b.uploadID = record.UploadID
	return nil
}

// UploadPart presigns an UploadPart request keyed by part number and part
// hash, then transmits the bytes to the signed URL.
func (b *S3UploadBackend) UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (string, error) {
	checksum, err := hexToBase64(partHash)
	if err != nil {
		return "", NewValidationError("invalid part hash", err)
	}

	req, _ := b.client.UploadPartRequest(&s3.UploadPartInput{
		Bucket:         aws.String(b.bucket),
		Key:            aws.String(b.objectName),
		UploadId:       aws.String(b.uploadID),
		PartNumber:     aws.Int64(partNumber),
		ContentLength:  aws.Int64(size),
		ChecksumSHA256: aws.String(checksum),
	})
	url, err := req.Presign(s3PresignTTL)
	if err != nil {
		return "", NewNetworkError("failed to presign part upload URL", err)
	}

	return putPart(ctx, b.httpClient, url, body, size, map[string]string{
		"x-amz-checksum-sha256": checksum,
	})
}

// Complete finalizes the multipart session with the ordered part list
func (b *S3UploadBackend) Complete(ctx context.Context, record *Record) error {
	parts := make([]*s3.CompletedPart, len(record.Parts))
	for i, p := range record.Parts {
		parts[i] = &s3.CompletedPart{
			PartNumber: aws.Int64(p.PartNumber),
			ETag:       aws.String(p.ETag),
		}
	}

	_, err := b.client.CompleteMultipartUploadWithContext(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(record.ObjectName),
		UploadId: aws.String(record.UploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return NewNetworkError("failed to complete multipart upload", err)
	}
	return nil
}

// hexToBase64 converts a hex digest to the base64 form S3 checksums use
func hexToBase64(digest string) (string, error) {
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
