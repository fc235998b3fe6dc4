package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/farereceipts/internal/config"
	"github.com/cleared-dev/farereceipts/internal/history"
	"github.com/cleared-dev/farereceipts/internal/model"
)

func newHistoryCommand(configPath *string) *cobra.Command {
	var limit int
	var runID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past reconciliation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			if cfg.History.DatabasePath == "" {
				return errors.New("run history is disabled (history.database_path is empty)")
			}

			store, err := history.Open(ctx, cfg.History.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if runID > 0 {
				return showRun(ctx, cmd, store, runID)
			}
			return listRuns(ctx, cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show (0 for all)")
	cmd.Flags().Int64Var(&runID, "run", 0, "show the transactions of one run")

	return cmd
}

func listRuns(ctx context.Context, cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tUPLOADED\tSKIPPED\tFAILED\tTOTAL\tERROR")
	for _, r := range runs {
		mode := "upload"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t£%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), mode,
			r.Uploaded, r.Skipped, r.Failed, model.FormatMinor(r.ReceiptedTotal), r.Error)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, cmd *cobra.Command, store *history.Store, runID int64) error {
	outcomes, err := store.Outcomes(ctx, runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No transactions recorded for run %d.\n", runID)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRANSACTION\tSTATUS\tREASON\tTRAVEL DATE\tAMOUNT\tEXTERNAL ID")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t£%s\t%s\n",
			o.TransactionID, o.Status, o.Reason, o.TravelDate, model.FormatMinor(-o.Amount), o.ExternalID)
	}
	return tw.Flush()
}
