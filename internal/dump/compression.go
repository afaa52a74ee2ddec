package dump

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/francishero/agent/internal/backup"
)

// newCompressingWriter wraps w with the configured compression. The returned
// writer must be closed to flush trailing compressor state; closing it does
// not close w.
func newCompressingWriter(w io.Writer, ct backup.CompressionType) (io.WriteCloser, error) {
	switch ct {
	case backup.CompressionTypeNone, "":
		return nopWriteCloser{w}, nil
	case backup.CompressionTypeGzip:
		return gzip.NewWriter(w), nil
	case backup.CompressionTypeLZ4:
		return lz4.NewWriter(w), nil
	case backup.CompressionTypeZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, backup.NewUnexpectedError("failed to create zstd writer", err)
		}
		return zw, nil
	default:
		return nil, backup.NewValidationError(fmt.Sprintf("unsupported compression type: %s", ct), nil)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
