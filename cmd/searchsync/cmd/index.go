package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// modelAction runs fn for every model named in args against a fresh app.
func modelAction(ctx context.Context, root *rootOptions, args []string, fn func(a *app, model string) error) error {
	a, err := newApp(ctx, root, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	for _, name := range args {
		if err := fn(a, name); err != nil {
			return err
		}
	}
	return nil
}

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <model>...",
		Short: "Import every searchable record of a model into its index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modelAction(cmd.Context(), root, args, func(a *app, name string) error {
				n, err := a.index.Import(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("import %s: %w", name, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s records\n", n, name)
				return err
			})
		},
	}
}

func newFlushCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush <model>...",
		Short: "Remove every document from a model's index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modelAction(cmd.Context(), root, args, func(a *app, name string) error {
				if err := a.index.Flush(cmd.Context(), name); err != nil {
					return fmt.Errorf("flush %s: %w", name, err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Flushed %s\n", name)
				return err
			})
		},
	}
}

func newUnimportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unimport <model>...",
		Short: "Remove a model's stored records from its index one by one",
		Long: `Remove a model's stored records from its index one by one.

Unlike flush, documents without a matching record stay in the index.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modelAction(cmd.Context(), root, args, func(a *app, name string) error {
				n, err := a.index.Unimport(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("unimport %s: %w", name, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s records\n", n, name)
				return err
			})
		},
	}
}

func newIndexCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage model indexes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <model>...",
		Short: "Create a model's index with its declared fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modelAction(cmd.Context(), root, args, func(a *app, name string) error {
				if err := a.index.CreateIndex(cmd.Context(), name); err != nil {
					return fmt.Errorf("create index %s: %w", name, err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Created index for %s\n", name)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <model>...",
		Short: "Delete a model's index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modelAction(cmd.Context(), root, args, func(a *app, name string) error {
				if err := a.index.DeleteIndex(cmd.Context(), name); err != nil {
					return fmt.Errorf("delete index %s: %w", name, err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted index for %s\n", name)
				return err
			})
		},
	})

	return cmd
}
