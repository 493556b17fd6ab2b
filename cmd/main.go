package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/JonnyShabli/ghsync/config"
	"github.com/JonnyShabli/ghsync/internal/job"
	"github.com/JonnyShabli/ghsync/internal/storage"
	"github.com/JonnyShabli/ghsync/internal/transport"
	"github.com/JonnyShabli/ghsync/pkg/logster"
	"github.com/JonnyShabli/ghsync/pkg/metrics"
)

const (
	localConfig = "config/config_local.yaml"
	envFile     = ".env"
)

// Version is injected at build time.
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "ghsync",
	Short:         "ghsync - mirror GitHub API resources to disk",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("ghsync", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", localConfig, "Path to the config file (yaml or toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

// app holds everything both commands share.
type app struct {
	cfg      *config.Config
	logger   *logster.ZapAdapter
	registry *prometheus.Registry
	runner   *job.Runner
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return nil, err
	}

	logger := logster.New(os.Stdout, cfg.Logger)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	client := transport.NewClient(logger, m)
	writer := storage.NewWriter(logger)
	runner := job.NewRunner(client, writer, cfg.Cache.Path, logger, m)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		runner:   runner,
	}, nil
}
