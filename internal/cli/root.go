// Package cli implements formctl, the operator command line over the
// submission store.
package cli

import (
	"context"
	"fmt"
	"time"

	"swedana-forms/internal/common/config"
	"swedana-forms/internal/common/database"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"
	"swedana-forms/internal/search"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	now       func() time.Time
	openStore func(ctx context.Context, opts *RootOptions) (*formstore.Store, func() error, error)
	openIndex func(ctx context.Context, opts *RootOptions) (Indexer, error)
}

// Indexer is the part of the search mirror the reindex command drives.
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	Reindex(ctx context.Context, subs []models.Submission) (int, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for formctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{
		now:       time.Now,
		openStore: openConfiguredStore,
		openIndex: openConfiguredIndex,
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formctl",
		Short: "Inspect and manage Swedana form submissions",
		Long: `formctl reads and edits the submission collection the form service writes.

It opens the same storage backend as the service, selected by the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: configs/config.yaml)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFromFile(o.ConfigPath)
	}
	return config.Load()
}

// logger writes diagnostics to stderr so they never mix with JSON output.
func (o *RootOptions) logger() logger.Logger {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	return logger.NewStructured(logger.Options{Level: level, Format: "console", Output: "stderr"}).Named("formctl")
}

// openConfiguredStore opens the configured backend. When search is enabled
// the mirror observes every write made from the command line too.
func openConfiguredStore(ctx context.Context, o *RootOptions) (*formstore.Store, func() error, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := o.logger()

	var extra []formstore.Option
	if cfg.Search.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		extra = append(extra, formstore.WithObserver(search.NewMirror(es.Client, cfg.Search.Index, log)))
	}
	return formstore.NewFromConfig(ctx, cfg, log, extra...)
}

func openConfiguredIndex(ctx context.Context, o *RootOptions) (Indexer, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Search.Enabled {
		return nil, fmt.Errorf("search is not enabled in the configuration")
	}
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := es.Ping(ctx); err != nil {
		return nil, err
	}
	return search.NewMirror(es.Client, cfg.Search.Index, o.logger()), nil
}

// withStore opens the store for one command and closes it afterwards.
func withStore(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter, fn func(ctx context.Context, store *formstore.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeFn, err := opts.openStore(ctx, opts)
	if err != nil {
		_ = f.Error(ErrCodeStorage, "failed to open submission store", err.Error())
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer closeFn()
	return fn(ctx, store)
}
