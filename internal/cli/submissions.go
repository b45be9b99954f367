package cli

import (
	"context"
	"fmt"

	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"

	"github.com/spf13/cobra"
)

type listOptions struct {
	Type   string
	Status string
	Search string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	lo := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, lo)
		},
	}
	cmd.Flags().StringVar(&lo.Type, "type", "", "only this type (order|contact|consultation)")
	cmd.Flags().StringVar(&lo.Status, "status", "", "only this status (new|viewed|responded)")
	cmd.Flags().StringVarP(&lo.Search, "search", "q", "", "case-insensitive text match on form fields")
	return cmd
}

func runList(cmd *cobra.Command, opts *RootOptions, lo *listOptions) error {
	f := newFormatter(cmd, opts)

	var q formstore.Query
	if lo.Type != "" && lo.Type != "all" {
		t, err := models.ParseSubmissionType(lo.Type)
		if err != nil {
			return invalidArgs(f, err)
		}
		q.Type = t
	}
	if lo.Status != "" && lo.Status != "all" {
		st, err := models.ParseSubmissionStatus(lo.Status)
		if err != nil {
			return invalidArgs(f, err)
		}
		q.Status = st
	}
	q.Search = lo.Search

	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		return f.Success(submissionTable(store.Filter(ctx, q)))
	})
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <new|viewed|responded>",
		Short: "Set the status of one submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts, args[0], args[1])
		},
	}
}

func runStatus(cmd *cobra.Command, opts *RootOptions, id, value string) error {
	f := newFormatter(cmd, opts)
	status, err := models.ParseSubmissionStatus(value)
	if err != nil {
		return invalidArgs(f, err)
	}

	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		sub, ok := store.Get(ctx, id)
		if !ok {
			_ = f.Error(ErrCodeNotFound, fmt.Sprintf("submission %s not found", id), nil)
			return NewExitError(ExitFailure, "submission not found")
		}
		if !store.UpdateStatus(ctx, id, status) {
			_ = f.Error(ErrCodeWrite, "status was not saved", nil)
			return NewExitError(ExitFailure, "status update failed")
		}
		sub.Status = status
		return f.Success(submissionView(sub))
	})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, opts *RootOptions, id string) error {
	f := newFormatter(cmd, opts)
	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		if !store.Delete(ctx, id) {
			_ = f.Error(ErrCodeWrite, "collection was not rewritten", map[string]string{"id": id})
			return NewExitError(ExitFailure, "delete failed")
		}
		return f.Success(message{
			Text:   "deleted " + id,
			Fields: map[string]interface{}{"id": id, "deleted": true},
		})
	})
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, rootOpts, yes)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removing all submissions")
	return cmd
}

func runClear(cmd *cobra.Command, opts *RootOptions, yes bool) error {
	f := newFormatter(cmd, opts)
	if !yes {
		_ = f.Error(ErrCodeConfirmNeeded, "refusing to clear submissions without --yes", nil)
		return NewExitError(ExitCommandError, "confirmation required")
	}
	return withStore(cmd, opts, f, func(ctx context.Context, store *formstore.Store) error {
		before := store.Stats(ctx).Total
		store.ClearAll(ctx)
		if left := store.Stats(ctx).Total; left != 0 {
			_ = f.Error(ErrCodeWrite, "submissions were not cleared", map[string]int{"remaining": left})
			return NewExitError(ExitFailure, "clear failed")
		}
		return f.Success(message{
			Text:   fmt.Sprintf("cleared %d submissions", before),
			Fields: map[string]interface{}{"cleared": before},
		})
	})
}

func invalidArgs(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeInvalidArgs, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid argument", err)
}
