package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/archivelab/fcbatch"
	"github.com/archivelab/fcbatch/input"
	"github.com/archivelab/fcbatch/output"
	"github.com/archivelab/fcbatch/tracker"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath    string
	verbose       bool
	metricsListen string
)

func main() {
	root := &cobra.Command{
		Use:           "fcbatch",
		Short:         "Batch load a directory of binaries and CSV metadata into a Fedora repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(loadCommand(), checkCommand(), versionCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadCommand builds the load subcommand: one config flag, one positional
// directory holding the metadata sheet and the binaries.
func loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [directory]",
		Short: "Create one container and one binary resource per metadata row",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			if cfg.Input.Kind == "fs" && dir == "" {
				return fmt.Errorf("a directory argument is required for the fs input")
			}
			if metricsListen != "" {
				go serveMetrics(metricsListen, logger)
			}
			runnerCfg, err := buildRunnerConfig(cfg, dir, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runner, err := fcbatch.NewRunner(ctx, *runnerCfg)
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address to serve prometheus metrics on during the load, e.g. :9090")
	return cmd
}

// checkCommand builds the check subcommand which only verifies the repository
// connection with the configured credentials.
func checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the repository connection and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			out := buildOutput(cfg)
			if err := out.Prepare(cmd.Context(), "check", logger); err != nil {
				return err
			}
			if err := out.Setup(); err != nil {
				return err
			}
			defer out.Shutdown()
			fmt.Printf("Repository %s is reachable.\n", cfg.Repository.Endpoint)
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fcbatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fcbatch", version)
		},
	}
}

// setup loads the config file and builds the logger.
func setup() (*fcbatch.Config, *zap.Logger, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("a config file is required, pass it with --config")
	}
	cfg, err := fcbatch.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	var logger *zap.Logger
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build the logger: %v", err)
	}
	return cfg, logger, nil
}

// buildRunnerConfig wires the configured storages into a runner config.
func buildRunnerConfig(cfg *fcbatch.Config, dir string, logger *zap.Logger) (*fcbatch.RunnerConfig, error) {
	in, err := buildInput(cfg, dir)
	if err != nil {
		return nil, err
	}
	trk, err := buildTracker(cfg, dir)
	if err != nil {
		return nil, err
	}
	runnerCfg := &fcbatch.RunnerConfig{
		Mapping:      cfg.Mapping,
		Namespaces:   cfg.Namespaces,
		Input:        in,
		Output:       buildOutput(cfg),
		Tracker:      trk,
		RunIDPrefix:  "fcbatch",
		Transactions: cfg.Repository.Transactions,
		StopOnError:  !cfg.ContinueOnError,
		Logger:       logger,
		Metrics:      fcbatch.NewPrometheusMetricsTracker("fcbatch"),
	}
	if cfg.Index.Enabled {
		runnerCfg.Indexer = output.NewElasticsearchIndexer(output.ElasticsearchIndexerConfig{
			ServerURL: cfg.Index.ServerURL,
			Index:     cfg.Index.Index,
		})
	}
	return runnerCfg, nil
}

// buildInput selects the input backend. The positional directory argument is
// the fs directory, or an override of the s3 prefix.
func buildInput(cfg *fcbatch.Config, dir string) (fcbatch.Input, error) {
	switch cfg.Input.Kind {
	case "fs":
		return input.NewFSInput(input.FSInputConfig{
			Dir:          dir,
			MetadataFile: cfg.Input.MetadataFile,
		}), nil
	case "s3":
		prefix := cfg.Input.Prefix
		if dir != "" {
			prefix = dir
		}
		awsCfg := aws.NewConfig()
		if cfg.Input.Region != "" {
			awsCfg = awsCfg.WithRegion(cfg.Input.Region)
		}
		return input.NewS3Input(input.S3InputConfig{
			AwsCfg:       awsCfg,
			Bucket:       cfg.Input.Bucket,
			Prefix:       prefix,
			MetadataFile: cfg.Input.MetadataFile,
		}), nil
	}
	return nil, fmt.Errorf("unknown input kind %q", cfg.Input.Kind)
}

// buildTracker selects the load protocol backend. The file tracker writes
// next to the fs input directory.
func buildTracker(cfg *fcbatch.Config, dir string) (fcbatch.Tracker, error) {
	switch cfg.Tracker.Kind {
	case "file":
		path := cfg.Tracker.Path
		if cfg.Input.Kind == "fs" && dir != "" {
			path = fmt.Sprintf("%s%c%s", dir, os.PathSeparator, cfg.Tracker.Path)
		}
		return fcbatch.NewFileTracker(fcbatch.FileTrackerConfig{Path: path}), nil
	case "mysql":
		t := &tracker.MySQLTracker{}
		t.Cfg = tracker.GORMTrackerConfig{
			Host:     cfg.Tracker.MySQL.Host,
			Port:     cfg.Tracker.MySQL.Port,
			Database: cfg.Tracker.MySQL.Database,
			User:     cfg.Tracker.MySQL.User,
			Password: cfg.Tracker.MySQL.Password,
			Logger:   gormlogger.Default,
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown tracker kind %q", cfg.Tracker.Kind)
}

func buildOutput(cfg *fcbatch.Config) *output.FedoraOutput {
	return output.NewFedoraOutput(output.FedoraOutputConfig{
		Endpoint: cfg.Repository.Endpoint,
		User:     cfg.Repository.User,
		Password: cfg.Repository.Password,
		Timeout:  cfg.Repository.Timeout,
	})
}

// serveMetrics exposes the prometheus registry for the duration of the load.
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
