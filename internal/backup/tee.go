package backup

import (
	"errors"
	"io"
)

// fanoutChunkSize is the unit the producer reads from the envelope stream.
// Consumers are paced in chunks; parts are assembled from many chunks.
const fanoutChunkSize = 256 * 1024

// errFanoutStopped reports that a consumer asked the producer to stop
// before end-of-stream.
var errFanoutStopped = errors.New("fan-out stopped by consumer")

// streamFanout delivers one byte stream to a fixed set of independently
// paced consumers. There is exactly one producer; coordination happens only
// through the bounded chunk channels, so no locks are needed. The bound is
// sized so a consumer can fall a full upload part behind the other without
// stalling it.
type streamFanout struct {
	chunkSize int
	capacity  int
}

// newStreamFanout sizes the per-consumer buffer to the largest accepted
// upload part plus slack.
func newStreamFanout(partSize int64) *streamFanout {
	capacity := int(partSize/fanoutChunkSize) + 4
	return &streamFanout{
		chunkSize: fanoutChunkSize,
		capacity:  capacity,
	}
}

// channels allocates one bounded chunk channel per consumer
func (f *streamFanout) channels(n int) []chan []byte {
	outs := make([]chan []byte, n)
	for i := range outs {
		outs[i] = make(chan []byte, f.capacity)
	}
	return outs
}

// run reads r to end-of-stream, delivering every chunk to every consumer in
// order. Each chunk is freshly allocated and treated as read-only by
// consumers, so the same slice is shared between them. All channels are
// closed before run returns, whatever the outcome; consumers observe
// end-of-stream as channel close. A signal on stop aborts the producer and
// returns errFanoutStopped.
func (f *streamFanout) run(r io.Reader, stop <-chan struct{}, outs []chan []byte) error {
	defer func() {
		for _, out := range outs {
			close(out)
		}
	}()

	for {
		buf := make([]byte, f.chunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for _, out := range outs {
				select {
				case out <- chunk:
				case <-stop:
					return errFanoutStopped
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
