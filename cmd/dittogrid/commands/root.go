package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/gridfs"
	"github.com/marmos91/dittogrid/pkg/metrics"
)

var (
	// Global flags
	cfgFile     string
	logLevel    string
	dumpMetrics bool
)

// ErrSilent fails a command without an error message; the exit status is
// the answer.
var ErrSilent = errors.New("silent failure")

var rootCmd = &cobra.Command{
	Use:   "dittogrid",
	Short: "Chunked file storage over MongoDB, BadgerDB, S3 or memory",
	Long: `dittogrid - store files as fixed-size chunks plus a file record,
using the GridFS layout (<root>.files and <root>.chunks).

The backing store is selected in the configuration file:
  memory   Ephemeral, lives for one command
  badger   Embedded BadgerDB directory
  mongo    A MongoDB deployment (interoperates with other GridFS clients)
  s3       One object per document in an S3 bucket

Configuration is read from $XDG_CONFIG_HOME/dittogrid/config.yaml
(or ~/.config/dittogrid/config.yaml). Run 'dittogrid init' to create it.

Examples:
  # Store a file, then read part of it back
  dittogrid put ./report.csv reports/2024.csv
  dittogrid cat reports/2024.csv --offset 100 --length 50

  # Pipe stdin into a stored file
  tail -f app.log | dittogrid append - logs/app.log`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every
// subcommand through cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/dittogrid/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "dump-metrics", false, "print collected metrics to stderr when the command finishes")
}

// loadConfig loads the configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	if dumpMetrics {
		cfg.Metrics.Enabled = true
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutputPath(cfg.Logging.Output); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openBucket builds the bucket described by the configuration. The returned
// function closes the backing store and, with --dump-metrics, prints what
// was collected.
func openBucket(cmd *cobra.Command) (*gridfs.Bucket, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	config.InitializeMetrics(cfg)

	bucket, db, err := config.CreateBucket(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened %s store, root=%s", cfg.Store.Type, bucket.Root())

	closeFn := func() {
		if err := db.Close(context.WithoutCancel(cmd.Context())); err != nil {
			logger.Warn("failed to close %s store: %v", cfg.Store.Type, err)
		}
		if dumpMetrics {
			if err := writeMetrics(cmd.ErrOrStderr()); err != nil {
				logger.Warn("failed to dump metrics: %v", err)
			}
		}
	}
	return bucket, closeFn, nil
}

// writeMetrics renders every registered metric family in the Prometheus
// text exposition format.
func writeMetrics(w io.Writer) error {
	families, err := metrics.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
