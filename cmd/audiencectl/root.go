package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignite/audience-sizer/internal/app"
	"github.com/ignite/audience-sizer/internal/config"
	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "audiencectl",
		Short: "Inspect schemas and size audiences against the warehouse",
		Long: `audiencectl runs the same operations as the HTTP service without a server.
Configuration comes from the YAML file, the env file and the environment,
exactly as for cmd/server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newSegmentCmd(opts))
	cmd.AddCommand(newCountCmd(opts))
	return cmd
}

// load reads configuration and builds the warehouse-side services.
func (o *rootOptions) load() (*config.Config, *app.App, error) {
	cfg, err := config.LoadFromEnv(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger.SetLevel(logger.ParseLevel(level))

	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
