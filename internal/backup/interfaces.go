package backup

import (
	"context"
	"io"
)

// Dumper produces the encrypted dump stream for one backup attempt. The
// symmetric key never leaves the dumper; the worker only ever sees its
// public-key-wrapped form.
type Dumper interface {
	// Check verifies the dump tooling is available for the configured
	// database. Failure is a PreconditionError and terminal for the job.
	Check(ctx context.Context) error

	// PrepareKeys generates a fresh symmetric key and returns it wrapped
	// under the job's public key.
	PrepareKeys(ctx context.Context) (wrappedKey []byte, err error)

	// Dump starts the database dump and returns the live ciphertext stream
	// together with the initialization vector chosen for this attempt.
	Dump(ctx context.Context) (stream io.ReadCloser, iv []byte, err error)
}

// UploadBackend accepts part-level upload requests for one backup artifact.
// Parts arrive with strictly increasing part numbers; Complete is called
// exactly once, after the record is frozen with the final content hash.
type UploadBackend interface {
	// Open establishes the upload session and fills the record's object
	// name and session identifier where the backend owns them.
	Open(ctx context.Context, record *Record) error

	// UploadPart transmits one part and returns its ETag. The part hash is
	// a SHA-256 hex digest over the part bytes, used to authorize the
	// part's destination URL.
	UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (etag string, err error)

	// Complete finalizes the upload with the record's ordered part list
	Complete(ctx context.Context, record *Record) error
}
