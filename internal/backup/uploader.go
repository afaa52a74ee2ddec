package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// partUploader is the upload-side fan-out consumer. It assembles chunks
// into parts of at most partSize bytes and hands each one to the backend in
// strictly increasing part-number order. A failed part aborts the job; no
// later part is ever requested.
type partUploader struct {
	backend  UploadBackend
	record   *Record
	partSize int64
	buf      bytes.Buffer
	next     int64
}

func newPartUploader(backend UploadBackend, record *Record, partSize int64) *partUploader {
	return &partUploader{
		backend:  backend,
		record:   record,
		partSize: partSize,
		next:     1,
	}
}

// run consumes chunks until the channel is closed, then flushes the final
// short part. Parts are acknowledged in generation order.
func (u *partUploader) run(ctx context.Context, in <-chan []byte) error {
	for chunk := range in {
		u.buf.Write(chunk)
		for int64(u.buf.Len()) >= u.partSize {
			if err := u.flush(ctx, u.buf.Next(int(u.partSize))); err != nil {
				return err
			}
		}
	}
	// The envelope always carries at least a header, so the final flush is
	// never empty unless every byte already went out on a part boundary.
	if u.buf.Len() > 0 || u.next == 1 {
		return u.flush(ctx, u.buf.Next(u.buf.Len()))
	}
	return nil
}

func (u *partUploader) flush(ctx context.Context, part []byte) error {
	digest := sha256.Sum256(part)
	partHash := hex.EncodeToString(digest[:])

	etag, err := u.backend.UploadPart(ctx, u.next, partHash, bytes.NewReader(part), int64(len(part)))
	if err != nil {
		return err
	}
	if err := u.record.AppendPart(u.next, etag); err != nil {
		return err
	}
	u.next++
	return nil
}
