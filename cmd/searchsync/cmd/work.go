package cmd

import (
	"github.com/spf13/cobra"
)

func newWorkCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Consume queued units without serving HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stop, err := a.startWorker()
			if err != nil {
				return err
			}
			defer func() { _ = stop() }()

			<-ctx.Done()
			a.logger.Info("Received shutdown signal")
			return nil
		},
	}
}
