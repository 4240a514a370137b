package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/internal/session"
	"github.com/efhkdmbc/honkey-pi/pkg/config"
	"github.com/efhkdmbc/honkey-pi/pkg/errors"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
	"github.com/efhkdmbc/honkey-pi/pkg/telemetry"
	"github.com/efhkdmbc/honkey-pi/pkg/validate"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "honkeypi",
		Short: "Honkey Pi - NMEA 2000 boat telemetry CSV logger",
		Long: `Honkey Pi records decoded NMEA 2000 boat telemetry into fixed-schema
CSV session files at a steady one-row-per-second cadence. Decoded messages
arrive from the bus decoder; each row is a snapshot of the latest value
seen for every mapped channel.`,
	}

	root.AddCommand(versionCmd())
	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Honkey Pi v%s\n", version)
			fmt.Printf("Log format: %s\n", "v11.10.18")
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		configFile string
		capture    string
		replayRate time.Duration
		dataDir    string
		boatID     string
		listenAddr string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a logging session",
		Long: `Run a logging session until interrupted. Decoded messages are read as
JSON lines from the capture file; "-" reads the decoder's output from
stdin, which is how the logger runs on the boat:

  n2k-decoder --channel can0 | honkeypi run --capture -

Replaying a recorded capture at its original pace:

  honkeypi run --capture trip.jsonl --replay-interval 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Logging.DataDirectory = dataDir
			}
			if boatID != "" {
				cfg.Logging.BoatID = boatID
			}
			if listenAddr != "" {
				cfg.Status.ListenAddr = listenAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := logger.Init(logger.Config{Level: logLevel}); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			path := capture
			if path == "-" {
				path = "/dev/stdin"
			}
			source := telemetry.NewReplaySource(path)
			source.Interval = replayRate

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("starting logging session",
				zap.String("capture", capture),
				zap.String("data_directory", cfg.Logging.DataDirectory),
				zap.String("can_channel", cfg.CAN.Channel),
				zap.Int("can_bitrate", cfg.CAN.Bitrate))

			if err := session.New(cfg, source).Run(ctx); err != nil {
				if errors.IsType(err, errors.ErrorTypeFile) {
					return fmt.Errorf("session aborted on a file error, check --capture and --data-dir: %w", err)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file (optional)")
	cmd.Flags().StringVar(&capture, "capture", "-", "Decoded message stream: a JSON-lines file, or \"-\" for stdin")
	cmd.Flags().DurationVar(&replayRate, "replay-interval", 0, "Pause between replayed messages (0 replays as fast as possible)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	cmd.Flags().StringVar(&boatID, "boat-id", "", "Override the boat id written to every row")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Serve /status and /metrics on this address (e.g. :8080)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func validateCmd() *cobra.Command {
	var (
		skipTiming bool
		tolerance  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Validate a recorded log file",
		Long: `Validate a recorded log file: the fixed column header, the version
line, and the one-row-per-second cadence of the timestamps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			fmt.Printf("Validating %s\n", path)

			ok, issues, err := validate.File(path, tolerance, skipTiming)
			if err != nil {
				if errors.IsType(err, errors.ErrorTypeFile) {
					return fmt.Errorf("cannot read %s: %w", path, err)
				}
				return err
			}
			for _, issue := range issues {
				fmt.Printf("  - %s\n", issue)
			}
			if !ok {
				return fmt.Errorf("validation failed: %d issue(s)", len(issues))
			}
			fmt.Println("All validations passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipTiming, "skip-timing", false, "Skip the 1 Hz timing check")
	cmd.Flags().DurationVar(&tolerance, "timing-tolerance", validate.DefaultTolerance, "Allowed deviation from the 1-second cadence")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
