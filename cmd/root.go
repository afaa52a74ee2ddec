package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/francishero/agent/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	listen   bool
	verbose  bool
	quiet    bool
	logFile  string
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "backup-agent",
	Short: "An agent that dumps, encrypts, and uploads database backups",
	Long: `Backup Agent dumps a database, encrypts the dump under the subscriber's
public key, and streams the result to object storage in parts while hashing
the full artifact.

Self-managed ("free" tier) jobs upload directly to the subscriber's own
S3, Azure, or GCS bucket. Managed ("premium" tier) jobs delegate URL
signing and finalization to the remote control plane.

Examples:
  # One-shot backup from a config file
  backup-agent --config=job.yaml

  # Run under a controller, reading commands from stdin
  backup-agent --listen

  # One-shot with debug logging to a file
  backup-agent --config=job.yaml --log-level=debug --log-file=agent.log`,
	RunE:          runAgent,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "job configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (quiet, normal, verbose, debug)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stderr")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.Flags().BoolVar(&listen, "listen", false, "read controller commands from stdin instead of running one job")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}

// initConfig reads in ENV variables that override logging settings
func initConfig() {
	viper.SetEnvPrefix("BACKUP_AGENT")
	viper.AutomaticEnv()
}

// newLogger builds the process logger from flags and environment
func newLogger() (*logging.Logger, error) {
	level := logging.LogLevel(viper.GetString("log_level"))
	if level == "" {
		switch {
		case quiet:
			level = logging.LogLevelQuiet
		case verbose:
			level = logging.LogLevelVerbose
		default:
			level = logging.LogLevelNormal
		}
	}

	format := "text"
	if viper.GetBool("log_json") {
		format = "json"
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  format,
		LogFile: viper.GetString("log_file"),
	})
}

// Version information (set from build flags through SetVersionInfo)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("backup-agent version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}
