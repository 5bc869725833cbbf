package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/drgolem/opdtools/internal/config"
	"github.com/drgolem/opdtools/pkg/opd"
)

var (
	// Persistent flags shared by all commands
	configPath string
	verbose    bool
	workers    int
	signedness string

	// cfg is loaded before any subcommand runs
	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opdtools",
	Short: "Inspect and export OPD point-animation containers",
	Long: `opdtools - A decoder for OPD (.opd) containers: a JSON header, a block of
centroid records and a table of frames holding big-endian point samples.

Features:
  - Validating header, centroid and frame-plan decoding
  - Signed and unsigned samples at 8, 16, 32 and 64 bits
  - Parallel frame decoding
  - zstd, gzip and zlib compressed payloads
  - Producer/consumer export of normalized points to CSV or JSON lines

Commands:
  - inspect: Print the header and container summary
  - frames: Print the frame plan
  - export: Write normalized point triplets`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				setupLogging(slog.LevelInfo)
				slog.Error("Failed to load config", "path", configPath, "error", err)
				os.Exit(1)
			}
			cfg = loaded
		}

		flags := cmd.Flags()
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if flags.Changed("signedness") {
			cfg.Signedness = signedness
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			setupLogging(slog.LevelInfo)
			slog.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		setupLogging(cfg.SlogLevel())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	pf.IntVarP(&workers, "workers", "w", 0, "Frame decoding workers (0 = GOMAXPROCS)")
	pf.StringVar(&signedness, "signedness", "auto", "Sample interpretation: auto, signed or unsigned")
}

func setupLogging(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// decodeOptions returns the decoder options for the loaded configuration,
// exiting on error
func decodeOptions() *opd.DecodeOptions {
	opts, err := cfg.DecodeOptions()
	if err != nil {
		slog.Error("Invalid decode options", "error", err)
		os.Exit(1)
	}
	return opts
}
