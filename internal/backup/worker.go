package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/francishero/agent/internal/logging"
)

// Worker drives exactly one backup from start to a single terminal outcome.
// It owns its Record exclusively; no state is shared across jobs.
type Worker struct {
	config  *JobConfig
	dumper  Dumper
	backend UploadBackend
	logger  *logging.Logger
}

// NewWorker creates a worker for one job
func NewWorker(config *JobConfig, dumper Dumper, backend UploadBackend, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Worker{
		config:  config,
		dumper:  dumper,
		backend: backend,
		logger:  logger,
	}
}

// Run executes the job. It always returns exactly one terminal Result,
// success or failure, never both. There are no internal retries; Failed and
// Succeeded are terminal and re-attempting belongs to the controller.
func (w *Worker) Run(ctx context.Context, record *Record) Result {
	if record == nil {
		record = NewRecord()
	}
	trail := []JobState{StateIdle}
	advance := func(s JobState) {
		record.State = s
		trail = append(trail, s)
		w.logger.WithFields(map[string]interface{}{
			"agent_id":   w.config.AgentID,
			"attempt_id": record.AttemptID,
			"state":      string(s),
		}).Debug("Job state changed")
	}
	fail := func(err error) Result {
		record.State = StateFailed
		trail = append(trail, StateFailed)
		jobErr := AsJobError(err)
		w.logger.WithFields(map[string]interface{}{
			"agent_id":   w.config.AgentID,
			"attempt_id": record.AttemptID,
			"error":      jobErr.Error(),
		}).Error("Backup job failed")
		return Result{Outcome: OutcomeFailed, Record: record, Err: jobErr, Trail: trail}
	}

	w.config.SetDefaults()
	if err := w.config.Validate(); err != nil {
		return fail(NewValidationError("invalid job configuration", err))
	}

	// Precondition: dump tooling available for the configured database
	if err := w.dumper.Check(ctx); err != nil {
		return fail(err)
	}
	advance(StateDumperReady)

	// Key material: fresh symmetric key, wrapped under the public key
	wrappedKey, err := w.dumper.PrepareKeys(ctx)
	if err != nil {
		return fail(err)
	}
	advance(StateKeysReady)

	// The IV is only known once dumping begins
	stream, iv, err := w.dumper.Dump(ctx)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	header, err := NewEnvelopeHeader(wrappedKey, iv)
	if err != nil {
		return fail(err)
	}
	// Header bytes fully precede the payload on the wire
	envelope := io.MultiReader(bytes.NewReader(header.Encode()), stream)

	if w.config.Tier == TierSelfManaged && record.ObjectName == "" {
		record.ObjectName = DeriveObjectName(w.config.Database.Database, time.Now())
	}
	if err := w.backend.Open(ctx, record); err != nil {
		return fail(err)
	}
	advance(StateStreamingUpload)

	// Fan out the envelope to the hash accumulator and the uploader. The
	// two consumers are paced independently over bounded chunk channels.
	fanout := newStreamFanout(w.config.PartSize)
	outs := fanout.channels(2)
	hashCh, uploadCh := outs[0], outs[1]

	stop := make(chan struct{})
	hashDone := make(chan string, 1)
	go func() {
		h := sha256.New()
		for chunk := range hashCh {
			h.Write(chunk)
		}
		hashDone <- hex.EncodeToString(h.Sum(nil))
	}()

	producerDone := make(chan error, 1)
	go func() {
		producerDone <- fanout.run(envelope, stop, outs)
	}()

	uploader := newPartUploader(w.backend, record, w.config.PartSize)
	if uploadErr := uploader.run(ctx, uploadCh); uploadErr != nil {
		// Stop the producer so no further parts are generated, then wait
		// for it to close the channels and the hash consumer to drain.
		close(stop)
		<-producerDone
		<-hashDone
		return fail(uploadErr)
	}
	if producerErr := <-producerDone; producerErr != nil {
		<-hashDone
		return fail(producerErr)
	}

	// Finalization must not begin before the hash accumulator has consumed
	// every envelope byte, header included.
	contentHash := <-hashDone
	advance(StateFinalizing)
	record.Freeze(contentHash)

	if err := w.backend.Complete(ctx, record); err != nil {
		return fail(err)
	}
	advance(StateSucceeded)

	w.logger.WithFields(map[string]interface{}{
		"agent_id":     w.config.AgentID,
		"attempt_id":   record.AttemptID,
		"object_name":  record.ObjectName,
		"parts":        len(record.Parts),
		"content_hash": record.ContentHash,
	}).Info("Backup job succeeded")

	return Result{Outcome: OutcomeSucceeded, Record: record, Trail: trail}
}
