// Package cmd provides the CLI commands for searchsync.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchsync/internal/config"
	"github.com/kailas-cloud/searchsync/internal/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	env        string
}

// loadConfig reads the explicit config file, or config/<env>.yaml.
func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(o.env)
}

// NewRootCmd creates the root command for the searchsync CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "searchsync",
		Short: "Keep search engine indexes in sync with database records",
		Long: `searchsync mirrors database records into a full-text search engine.

It imports and flushes model indexes, turns record lifecycle events into
index updates, and answers searches with live records in engine rank order.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("searchsync version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the config file (default: config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Environment used to locate the config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newWorkCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newFlushCmd(opts))
	cmd.AddCommand(newUnimportCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
