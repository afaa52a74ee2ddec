package backup

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureUploadBackend implements UploadBackend against Azure Blob Storage
// for the self-managed tier. Parts map onto staged blocks: each part is
// staged with a block ID encoding its part number, and Complete commits
// the block list in part order.
type AzureUploadBackend struct {
	containerURL azblob.ContainerURL

	// session state, set by Open; one backend instance serves one job
	blobURL azblob.BlockBlobURL
}

// NewAzureUploadBackend creates a new AzureUploadBackend instance
func NewAzureUploadBackend(config *AzureConfig) (*AzureUploadBackend, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid Azure storage configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewValidationError("failed to create Azure credentials", err)
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewValidationError("failed to parse Azure service URL", err)
	}

	return &AzureUploadBackend{
		containerURL: azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
	}, nil
}

// Open binds the session to the record's object name. The blob itself is
// the session; Azure has no separate upload identifier.
func (b *AzureUploadBackend) Open(ctx context.Context, record *Record) error {
	b.blobURL = b.containerURL.NewBlockBlobURL(record.ObjectName)
	record.UploadID = record.ObjectName
	return nil
}

// UploadPart stages one block; the block ID doubles as the part's ETag
func (b *AzureUploadBackend) UploadPart(ctx context.Context, partNumber int64, partHash string, body io.ReadSeeker, size int64) (string, error) {
	blockID := azureBlockID(partNumber)
	_, err := b.blobURL.StageBlock(ctx, blockID, body, azblob.LeaseAccessConditions{}, nil, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return "", NewNetworkError(fmt.Sprintf("failed to stage block for part %d", partNumber), err)
	}
	return blockID, nil
}

// Complete commits the staged blocks in part order, recording the final
// content hash as blob metadata.
func (b *AzureUploadBackend) Complete(ctx context.Context, record *Record) error {
	blockIDs := make([]string, len(record.Parts))
	for i, p := range record.Parts {
		blockIDs[i] = p.ETag
	}

	_, err := b.blobURL.CommitBlockList(ctx, blockIDs,
		azblob.BlobHTTPHeaders{ContentType: "application/octet-stream"},
		azblob.Metadata{"content_hash": record.ContentHash},
		azblob.BlobAccessConditions{},
		azblob.DefaultAccessTier,
		nil,
		azblob.ClientProvidedKeyOptions{},
		azblob.ImmutabilityPolicyOptions{})
	if err != nil {
		return NewNetworkError("failed to commit block list", err)
	}
	return nil
}

// azureBlockID encodes a part number as a fixed-width base64 block ID.
// All block IDs of a blob must have equal length.
func azureBlockID(partNumber int64) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("part-%08d", partNumber)))
}
