package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/francishero/agent/internal/backup"
	"github.com/francishero/agent/internal/control"
	"github.com/francishero/agent/internal/display"
	"github.com/francishero/agent/internal/dump"
	"github.com/francishero/agent/internal/logging"
)

// runAgent is the main execution function for the CLI
func runAgent(cmd *cobra.Command, args []string) error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if listen {
		return runListen(ctx, logger)
	}

	if cfgFile == "" {
		return fmt.Errorf("either --config or --listen is required")
	}
	config, err := loadJobConfig(cfgFile)
	if err != nil {
		return err
	}

	result := runJob(ctx, config, backup.NewRecord(), logger)

	console := display.NewConsole(os.Stdout)
	if !result.Succeeded() {
		console.Failure(result.Err.Code())
		logger.Errorf("Backup failed:\n%s", result.ErrorPayload())
		os.Exit(1)
	}
	console.Success(result.Record.ObjectName, len(result.Record.Parts))
	return nil
}

// runListen serves controller commands from stdin until the stream closes.
// Job failures are reported to the controller on stdout, never through the
// process exit code.
func runListen(ctx context.Context, logger *logging.Logger) error {
	listener := control.NewListener(os.Stdin, logger)
	emitter := control.NewEmitter(os.Stdout)

	logger.Info("Listening for controller commands")
	for {
		payload, err := listener.Next()
		if err == io.EOF {
			logger.Info("Command stream closed")
			return nil
		}
		if err != nil {
			return err
		}

		result := runJob(ctx, &payload.Config, payload.SeedRecord(), logger)
		if !result.Succeeded() {
			if err := emitter.EmitError(result.ErrorPayload()); err != nil {
				return fmt.Errorf("failed to report job failure: %w", err)
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// runJob wires one job's dumper and upload backend and runs it to its
// terminal result.
func runJob(ctx context.Context, config *backup.JobConfig, record *backup.Record, logger *logging.Logger) backup.Result {
	config.SetDefaults()

	backend, err := backup.NewUploadBackend(ctx, config)
	if err != nil {
		return backup.Result{
			Outcome: backup.OutcomeFailed,
			Record:  record,
			Err:     backup.AsJobError(err),
			Trail:   []backup.JobState{backup.StateIdle, backup.StateFailed},
		}
	}

	dumper := dump.NewMySQLDumper(config, logger)
	worker := backup.NewWorker(config, dumper, backend, logger)
	return worker.Run(ctx, record)
}

// loadJobConfig reads and validates a YAML job configuration file
func loadJobConfig(path string) (*backup.JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config backup.JobConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}
