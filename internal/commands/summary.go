package commands

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/cleared-dev/farereceipts/internal/model"
	"github.com/cleared-dev/farereceipts/internal/reconcile"
)

// printSummary writes the end-of-run report. Transactions skipped for being
// unrelated (other merchants, card checks, unsettled) are only counted; the
// ones that looked like fares but could not be matched are listed.
func printSummary(w io.Writer, report *reconcile.Report, dryRun bool) {
	fmt.Fprintln(w)
	if dryRun {
		planned := report.Filter(reconcile.StatusDryRun)
		var total int64
		for _, o := range planned {
			total += o.Total
		}
		fmt.Fprintf(w, "Dry run: would upload %d receipt(s) totalling £%s\n", len(planned), model.FormatMinor(total))
	} else {
		fmt.Fprintf(w, "Uploaded %d receipt(s) totalling £%s\n",
			report.Count(reconcile.StatusUploaded), model.FormatMinor(report.ReceiptedTotal()))
	}

	counts := report.SkipCounts()
	if len(counts) > 0 {
		reasons := make([]string, 0, len(counts))
		for reason := range counts {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)

		fmt.Fprintf(w, "Skipped %d transaction(s):\n", report.Count(reconcile.StatusSkipped))
		for _, reason := range reasons {
			fmt.Fprintf(w, "  %-12s %d\n", reason, counts[reconcile.SkipReason(reason)])
		}
	}

	var unmatched []reconcile.Outcome
	for _, o := range report.Filter(reconcile.StatusSkipped) {
		switch o.Reason {
		case reconcile.SkipBadNote, reconcile.SkipNoTravel, reconcile.SkipUnresolved:
			unmatched = append(unmatched, o)
		}
	}
	if len(unmatched) > 0 {
		fmt.Fprintln(w, "Unmatched transit charges:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, o := range unmatched {
			fmt.Fprintf(tw, "  %s\t£%s\t%s\n", o.TransactionID, model.FormatMinor(-o.Amount), o.Err)
		}
		_ = tw.Flush()
	}

	if failed := report.Filter(reconcile.StatusFailed); len(failed) > 0 {
		fmt.Fprintf(w, "Failed %d upload(s):\n", len(failed))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, o := range failed {
			fmt.Fprintf(tw, "  %s\t£%s\t%s\n", o.TransactionID, model.FormatMinor(o.Total), o.Err)
		}
		_ = tw.Flush()
	}
}
