package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/francishero/agent/internal/backup"
)

// createConfigCommand creates the config subcommand for generating a sample
// job configuration.
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a sample job configuration file",
		Long: `Print a sample YAML job configuration to stdout. Redirect it to a file
and edit the values for your database and storage target:

  backup-agent config > job.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := sampleJobConfig()
			data, err := yaml.Marshal(sample)
			if err != nil {
				return fmt.Errorf("failed to render sample configuration: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

// sampleJobConfig returns a self-managed S3 job with every common field set
func sampleJobConfig() *backup.JobConfig {
	config := &backup.JobConfig{
		Tier:    backup.TierSelfManaged,
		AgentID: "agent-01",
		Database: backup.DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			Username: "backup",
			Password: "secret",
			Database: "app_production",
		},
		PublicKeyPEM: "-----BEGIN PUBLIC KEY-----\n...\n-----END PUBLIC KEY-----",
		Storage: &backup.StorageConfig{
			Provider: backup.StorageProviderS3,
			S3: &backup.S3Config{
				Bucket:    "my-backups",
				Region:    "us-east-1",
				AccessKey: "AKIA...",
				SecretKey: "...",
			},
		},
		Compression: backup.CompressionTypeZstd,
	}
	config.SetDefaults()
	return config
}
