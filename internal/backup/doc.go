// Package backup implements the core backup-job pipeline of the agent.
//
// A job dumps a database, encrypts the dump under a hybrid scheme (a fresh
// symmetric key wrapped under the subscriber's public key), frames the
// result in a small binary envelope, and streams that envelope to an object
// store in parts while a SHA-256 of the full envelope is computed
// concurrently. Each job runs once and terminates with exactly one outcome.
//
// Core components:
//
//   - Worker: drives one backup from start to a single terminal Result
//   - EnvelopeHeader: the binary framing written ahead of the ciphertext
//   - UploadBackend: part-level upload strategy, fixed per job by tier
//     (direct S3/Azure/GCS for self-managed jobs, delegated pre-signed
//     URLs through the control plane for managed jobs)
//   - Record: one attempt's identity, part list, and final content hash
//
// The envelope byte stream is fanned out to two independently paced
// consumers (hash accumulator and uploader) over bounded chunk channels;
// the whole backup is never buffered in memory.
//
// Example usage:
//
//	backend, err := backup.NewUploadBackend(ctx, config)
//	if err != nil {
//		return err
//	}
//	worker := backup.NewWorker(config, dumper, backend, logger)
//	result := worker.Run(ctx, record)
//	if !result.Succeeded() {
//		emitter.EmitError(result.ErrorPayload())
//	}
package backup
