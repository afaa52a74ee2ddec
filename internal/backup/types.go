package backup

import (
	"time"
)

// Tier selects the upload strategy and the completion reporter for a job.
// Self-managed ("free") jobs talk to the subscriber's own object store;
// managed ("premium") jobs delegate URL signing and finalization to the
// remote control plane.
type Tier string

const (
	TierSelfManaged Tier = "free"
	TierManaged     Tier = "premium"
)

// JobState tracks the worker through its lifecycle. Succeeded and Failed
// are terminal; re-attempting is the controller's responsibility.
type JobState string

const (
	StateIdle            JobState = "Idle"
	StateDumperReady     JobState = "DumperReady"
	StateKeysReady       JobState = "KeysReady"
	StateStreamingUpload JobState = "StreamingUpload"
	StateFinalizing      JobState = "Finalizing"
	StateSucceeded       JobState = "Succeeded"
	StateFailed          JobState = "Failed"
)

// DatabaseConfig holds connection parameters for the database being backed up
type DatabaseConfig struct {
	Host     string        `json:"host" yaml:"host"`
	Port     int           `json:"port" yaml:"port"`
	Username string        `json:"username" yaml:"username"`
	Password string        `json:"password" yaml:"password"`
	Database string        `json:"database" yaml:"database"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// StorageConfig selects the object-store target for self-managed jobs
type StorageConfig struct {
	Provider StorageProviderType `json:"provider" yaml:"provider"`
	S3       *S3Config           `json:"s3,omitempty" yaml:"s3,omitempty"`
	Azure    *AzureConfig        `json:"azure,omitempty" yaml:"azure,omitempty"`
	GCS      *GCSConfig          `json:"gcs,omitempty" yaml:"gcs,omitempty"`
}

// StorageProviderType identifies an object-store backend
type StorageProviderType string

const (
	StorageProviderS3    StorageProviderType = "s3"
	StorageProviderAzure StorageProviderType = "azure"
	StorageProviderGCS   StorageProviderType = "gcs"
)

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `json:"account_name" yaml:"account_name"`
	AccountKey    string `json:"account_key" yaml:"account_key"`
	ContainerName string `json:"container_name" yaml:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	CredentialsPath string `json:"credentials_path" yaml:"credentials_path"`
	ProjectID       string `json:"project_id" yaml:"project_id"`
}

// ControlPlaneConfig points a managed-tier job at the remote control plane
type ControlPlaneConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

// JobConfig is the immutable configuration for one backup job
type JobConfig struct {
	Tier         Tier                `json:"tier" yaml:"tier"`
	AgentID      string              `json:"agent_id" yaml:"agent_id"`
	Database     DatabaseConfig      `json:"database" yaml:"database"`
	PublicKeyPEM string              `json:"public_key" yaml:"public_key"`
	Storage      *StorageConfig      `json:"storage,omitempty" yaml:"storage,omitempty"`
	ControlPlane *ControlPlaneConfig `json:"control_plane,omitempty" yaml:"control_plane,omitempty"`

	// PartSize is the largest upload part the backends accept. The fan-out
	// buffer is sized to PartSize plus slack so the producer never has to
	// hold more than one in-flight part per consumer.
	PartSize int64 `json:"part_size,omitempty" yaml:"part_size"`

	// Compression applied to the dump stream before encryption
	Compression CompressionType `json:"compression,omitempty" yaml:"compression"`

	// KeyPassphrase switches key generation from random to PBKDF2-derived
	KeyPassphrase string `json:"key_passphrase,omitempty" yaml:"key_passphrase"`
}

// CompressionType identifies the compression applied to the dump stream
type CompressionType string

const (
	CompressionTypeNone CompressionType = "none"
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeLZ4  CompressionType = "lz4"
	CompressionTypeZstd CompressionType = "zstd"
)

const (
	// DefaultPartSize is used when the config does not set one. 16 MiB keeps
	// the bounded fan-out buffer small while staying well above the S3
	// 5 MiB minimum part size.
	DefaultPartSize = 16 * 1024 * 1024

	// DefaultDatabaseTimeout bounds the preflight connection check
	DefaultDatabaseTimeout = 30 * time.Second
)

// SetDefaults fills zero-valued optional fields
func (c *JobConfig) SetDefaults() {
	if c.PartSize == 0 {
		c.PartSize = DefaultPartSize
	}
	if c.Compression == "" {
		c.Compression = CompressionTypeNone
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = DefaultDatabaseTimeout
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
}

// Validate validates the JobConfig
func (c *JobConfig) Validate() error {
	var errors ValidationErrors

	switch c.Tier {
	case TierSelfManaged:
		if c.Storage == nil {
			errors.Add("storage", "object-store configuration is required for the self-managed tier", nil)
		} else if err := c.Storage.Validate(); err != nil {
			if validationErrs, ok := err.(ValidationErrors); ok {
				errors = append(errors, validationErrs...)
			} else {
				errors.Add("storage", err.Error(), nil)
			}
		}
	case TierManaged:
		if c.ControlPlane == nil {
			errors.Add("control_plane", "control-plane configuration is required for the managed tier", nil)
		} else if c.ControlPlane.BaseURL == "" {
			errors.Add("control_plane.base_url", "control-plane base URL is required", c.ControlPlane.BaseURL)
		}
	default:
		errors.Add("tier", "tier must be free or premium", c.Tier)
	}

	if c.AgentID == "" {
		errors.Add("agent_id", "agent identifier is required", c.AgentID)
	}

	if c.Database.Host == "" {
		errors.Add("database.host", "database host is required", c.Database.Host)
	}
	if c.Database.Database == "" {
		errors.Add("database.database", "database name is required", c.Database.Database)
	}
	if c.Database.Username == "" {
		errors.Add("database.username", "database username is required", c.Database.Username)
	}

	if c.PublicKeyPEM == "" {
		errors.Add("public_key", "public key is required", nil)
	}

	if c.PartSize < 0 {
		errors.Add("part_size", "part size cannot be negative", c.PartSize)
	}

	if c.Compression != "" && !isValidCompressionType(c.Compression) {
		errors.Add("compression", "invalid compression type", c.Compression)
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// Validate validates the StorageConfig
func (sc *StorageConfig) Validate() error {
	var errors ValidationErrors

	switch sc.Provider {
	case StorageProviderS3:
		if sc.S3 == nil {
			errors.Add("s3", "S3 storage configuration is required", nil)
		} else if err := sc.S3.Validate(); err != nil {
			if validationErrs, ok := err.(ValidationErrors); ok {
				errors = append(errors, validationErrs...)
			} else {
				errors.Add("s3", err.Error(), nil)
			}
		}
	case StorageProviderAzure:
		if sc.Azure == nil {
			errors.Add("azure", "Azure storage configuration is required", nil)
		} else if err := sc.Azure.Validate(); err != nil {
			if validationErrs, ok := err.(ValidationErrors); ok {
				errors = append(errors, validationErrs...)
			} else {
				errors.Add("azure", err.Error(), nil)
			}
		}
	case StorageProviderGCS:
		if sc.GCS == nil {
			errors.Add("gcs", "GCS storage configuration is required", nil)
		} else if err := sc.GCS.Validate(); err != nil {
			if validationErrs, ok := err.(ValidationErrors); ok {
				errors = append(errors, validationErrs...)
			} else {
				errors.Add("gcs", err.Error(), nil)
			}
		}
	default:
		errors.Add("provider", "invalid storage provider type", sc.Provider)
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// Validate validates the S3Config
func (s3c *S3Config) Validate() error {
	var errors ValidationErrors

	if s3c.Bucket == "" {
		errors.Add("bucket", "S3 bucket name is required", s3c.Bucket)
	}
	if s3c.Region == "" {
		errors.Add("region", "S3 region is required", s3c.Region)
	}
	if s3c.AccessKey == "" {
		errors.Add("access_key", "S3 access key is required", s3c.AccessKey)
	}
	if s3c.SecretKey == "" {
		errors.Add("secret_key", "S3 secret key is required", s3c.SecretKey)
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// Validate validates the AzureConfig
func (ac *AzureConfig) Validate() error {
	var errors ValidationErrors

	if ac.AccountName == "" {
		errors.Add("account_name", "Azure account name is required", ac.AccountName)
	}
	if ac.AccountKey == "" {
		errors.Add("account_key", "Azure account key is required", ac.AccountKey)
	}
	if ac.ContainerName == "" {
		errors.Add("container_name", "Azure container name is required", ac.ContainerName)
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// Validate validates the GCSConfig
func (gc *GCSConfig) Validate() error {
	var errors ValidationErrors

	if gc.Bucket == "" {
		errors.Add("bucket", "GCS bucket name is required", gc.Bucket)
	}
	if gc.ProjectID == "" {
		errors.Add("project_id", "GCS project ID is required", gc.ProjectID)
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

func isValidCompressionType(ct CompressionType) bool {
	switch ct {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}
