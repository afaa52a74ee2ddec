package backup

import (
	"context"

	"github.com/francishero/agent/internal/controlplane"
)

// NewUploadBackend selects the upload backend for a job. The strategy is
// fixed per job by subscription tier: managed jobs delegate to the control
// plane, self-managed jobs talk to the configured object store directly.
func NewUploadBackend(ctx context.Context, config *JobConfig) (UploadBackend, error) {
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid job configuration", err)
	}

	switch config.Tier {
	case TierManaged:
		client := controlplane.NewClient(config.ControlPlane.BaseURL, config.ControlPlane.APIKey)
		return NewDelegatedUploadBackend(client, config.AgentID, config.PublicKeyPEM), nil

	case TierSelfManaged:
		switch config.Storage.Provider {
		case StorageProviderS3:
			return NewS3UploadBackend(config.Storage.S3)
		case StorageProviderAzure:
			return NewAzureUploadBackend(config.Storage.Azure)
		case StorageProviderGCS:
			return NewGCSUploadBackend(ctx, config.Storage.GCS, config.PartSize)
		default:
			return nil, NewValidationError("unsupported storage provider", nil).
				WithContext("provider", config.Storage.Provider)
		}

	default:
		return nil, NewValidationError("unsupported subscription tier", nil).
			WithContext("tier", config.Tier)
	}
}
