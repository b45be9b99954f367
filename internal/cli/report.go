package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"swedana-forms/internal/formstore"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count submissions by status and type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			return withStore(cmd, rootOpts, f, func(ctx context.Context, store *formstore.Store) error {
				return f.Success(statsView(store.Stats(ctx)))
			})
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all submissions as CSV",
		Long: `Export all submissions as CSV.

Without --output the CSV is written to stdout. When --output names a
directory the file is called swedana-submissions-YYYY-MM-DD.csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write the CSV to")
	return cmd
}

func runExport(cmd *cobra.Command, opts *RootOptions, output string) error {
	f := newFormatter(cmd, opts)
	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		csv := store.ExportCSV(ctx)

		if output == "" {
			if f.Format == "json" {
				return f.Success(map[string]string{"csv": csv})
			}
			_, err := fmt.Fprintln(f.Writer, csv)
			return err
		}

		path := output
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			path = filepath.Join(output, formstore.ExportFilename(opts.now()))
		}
		if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
			_ = f.Error(ErrCodeWrite, "failed to write export", err.Error())
			return WrapExitError(ExitFailure, "write export", err)
		}
		return f.Success(message{
			Text:   fmt.Sprintf("wrote %d bytes to %s", len(csv), path),
			Fields: map[string]interface{}{"path": path, "bytes": len(csv)},
		})
	})
}

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, rootOpts)
		},
	}
}

func runReindex(cmd *cobra.Command, opts *RootOptions) error {
	f := newFormatter(cmd, opts)
	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		idx, err := opts.openIndex(ctx, opts)
		if err != nil {
			_ = f.Error(ErrCodeSearch, "search index unavailable", err.Error())
			return WrapExitError(ExitCommandError, "open index", err)
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			_ = f.Error(ErrCodeSearch, "failed to create index", err.Error())
			return WrapExitError(ExitFailure, "ensure index", err)
		}

		subs := store.ReadAll(ctx)
		n, err := idx.Reindex(ctx, subs)
		if err != nil {
			_ = f.Error(ErrCodeSearch, fmt.Sprintf("reindex stopped after %d of %d submissions", n, len(subs)), err.Error())
			return WrapExitError(ExitFailure, "reindex", err)
		}
		return f.Success(message{
			Text:   fmt.Sprintf("indexed %d submissions", n),
			Fields: map[string]interface{}{"indexed": n},
		})
	})
}
