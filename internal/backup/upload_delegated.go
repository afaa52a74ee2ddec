package backup

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/francishero/agent/internal/controlplane"
)

// DelegatedUploadBackend implements UploadBackend for the managed tier.
// The remote control plane owns the object name and the upload session;
// the agent only asks for a pre-signed URL per part and reports the final
// hash and part list through the finish-upload contract.
type DelegatedUploadBackend struct {
	client       *controlplane.Client
	httpClient   *http.Client
	agentID      string
	publicKeyPEM string
}

// NewDelegatedUploadBackend creates a new DelegatedUploadBackend instance
func NewDelegatedUploadBackend(client *controlplane.Client, agentID, publicKeyPEM string) *DelegatedUploadBackend {
	return &DelegatedUploadBackend{
		client:       client,
		httpClient:   newPartHTTPClient(),
		agentID:      agentID,
		publicKeyPEM: publicKeyPEM,
	}
}

// Open is a no-op: the control plane assigned the session before the job
// started, via the record seeded into the start command.
func (b *DelegatedUploadBackend) Open(ctx context.Context, record *Record) error {
	return nil
}

// UploadPart asks the control plane for a pre-signed URL carrying the part
// number, part hash, and agent identifier, then transmits the bytes.
func (b *DelegatedUploadBackend) UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (string, error) {
	url, err := b.client.PresignPart(ctx, controlplane.PresignPartRequest{
		AgentID:    b.agentID,
		PartNumber: partNumber,
		PartHash:   partHash,
	})
	if err != nil {
		return "", wrapControlPlaneError("failed to obtain part upload URL", err)
	}
	return putPart(ctx, b.httpClient, url, body, size, nil)
}

// Complete reports the frozen record through the finish-upload contract:
// full content hash, ordered part list, agent identifier, and public key.
func (b *DelegatedUploadBackend) Complete(ctx context.Context, record *Record) error {
	parts := make([]controlplane.CompletedPart, len(record.Parts))
	for i, p := range record.Parts {
		parts[i] = controlplane.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	err := b.client.FinishUpload(ctx, controlplane.FinishUploadRequest{
		AgentID:     b.agentID,
		ObjectName:  record.ObjectName,
		UploadID:    record.UploadID,
		Parts:       parts,
		ContentHash: record.ContentHash,
		PublicKey:   b.publicKeyPEM,
	})
	if err != nil {
		return wrapControlPlaneError("failed to finish upload", err)
	}
	return nil
}

// wrapControlPlaneError maps client failures onto the job error taxonomy,
// surfacing the remote response body when one was captured.
func wrapControlPlaneError(message string, err error) *JobError {
	var apiErr *controlplane.APIError
	if errors.As(err, &apiErr) {
		return NewNetworkError(message, err).
			WithResponse(apiErr.Body).
			WithContext("status", apiErr.StatusCode)
	}
	return NewNetworkError(message, err)
}
