// Package reconcile drives a reconciliation run: it walks the account's
// transactions, matches transit charges to the fare ledger and uploads one
// receipt per match.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cleared-dev/farereceipts/internal/model"
	"github.com/cleared-dev/farereceipts/internal/receipt"
	"github.com/cleared-dev/farereceipts/internal/resolver"
)

// Defaults for the transaction filters.
const (
	DefaultMerchant      = "Transport for London"
	DefaultCardCheckNote = "Active card check"
)

// ErrUploadFailed is returned when at least one receipt could not be uploaded.
var ErrUploadFailed = errors.New("receipt upload failed")

// TransactionSource lists the transactions to reconcile.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]model.Transaction, error)
}

// ReceiptUploader submits a receipt to the bank.
type ReceiptUploader interface {
	UploadReceipt(ctx context.Context, r model.Receipt) error
}

// Matcher finds the fares a transaction pays for. *resolver.Resolver is the
// implementation used by the CLI.
type Matcher interface {
	Resolve(txn model.Transaction) (model.MatchResult, error)
}

// Policy decides what happens after a failed upload.
type Policy string

const (
	// PolicyAbort stops the run at the first failed upload.
	PolicyAbort Policy = "abort"
	// PolicyContinue records the failure and carries on.
	PolicyContinue Policy = "continue"
)

// ParsePolicy validates a policy name. An empty name means PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyContinue:
		return PolicyContinue, nil
	default:
		return "", fmt.Errorf("unknown upload failure policy %q (want %q or %q)", s, PolicyAbort, PolicyContinue)
	}
}

// Options configures a Reconciler.
type Options struct {
	Merchant      string
	CardCheckNote string
	Policy        Policy
	DryRun        bool
}

// DefaultOptions returns the filters for the bank's transit charges with the
// abort policy.
func DefaultOptions() Options {
	return Options{
		Merchant:      DefaultMerchant,
		CardCheckNote: DefaultCardCheckNote,
		Policy:        PolicyAbort,
	}
}

// Reconciler runs one sequential pass over a transaction source.
type Reconciler struct {
	source   TransactionSource
	uploader ReceiptUploader
	matcher  Matcher
	builder  *receipt.Builder
	opts     Options
	logger   *slog.Logger
}

// New creates a Reconciler. A nil logger discards log output.
func New(source TransactionSource, uploader ReceiptUploader, matcher Matcher, builder *receipt.Builder, opts Options, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	return &Reconciler{
		source:   source,
		uploader: uploader,
		matcher:  matcher,
		builder:  builder,
		opts:     opts,
		logger:   logger,
	}
}

// Run processes every transaction in source order.
//
// Listing failures are returned without a report. Upload failures return the
// report built so far and an error wrapping ErrUploadFailed: immediately under
// PolicyAbort, after the last transaction under PolicyContinue. Skips never
// produce an error.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	txns, err := r.source.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	r.logger.Info("Fetched transactions", "count", len(txns), "dry_run", r.opts.DryRun)

	report := &Report{}
	for _, txn := range txns {
		outcome := r.process(ctx, txn)
		report.add(outcome)

		if outcome.Status != StatusFailed {
			continue
		}
		if r.opts.Policy == PolicyAbort {
			r.logger.Error("Aborting run", "transaction_id", txn.ID, "error", outcome.Err)
			return report, fmt.Errorf("%w: transaction %s: %w", ErrUploadFailed, txn.ID, outcome.Err)
		}
	}

	if failed := report.Count(StatusFailed); failed > 0 {
		return report, fmt.Errorf("%w: %d of %d receipts", ErrUploadFailed, failed, failed+report.Count(StatusUploaded))
	}
	return report, nil
}

func (r *Reconciler) process(ctx context.Context, txn model.Transaction) Outcome {
	out := Outcome{TransactionID: txn.ID, Amount: txn.Amount}
	log := r.logger.With("transaction_id", txn.ID)

	if txn.MerchantName() != r.opts.Merchant {
		log.Debug("Skipping non-transit transaction", "merchant", txn.MerchantName())
		return skipped(out, SkipNotTransit, nil)
	}
	if txn.Note == r.opts.CardCheckNote {
		log.Debug("Skipping card check")
		return skipped(out, SkipCardCheck, nil)
	}

	match, err := r.matcher.Resolve(txn)
	var noteErr *resolver.NoteFormatError
	switch {
	case errors.Is(err, resolver.ErrUnsettled):
		log.Debug("Skipping unsettled transaction")
		return skipped(out, SkipUnsettled, nil)
	case errors.As(err, &noteErr):
		log.Warn("Could not read travel date from note",
			"created", txn.Created.Format(time.RFC3339),
			"note", txn.Note,
			"error", noteErr.Err,
		)
		return skipped(out, SkipBadNote, err)
	case errors.Is(err, resolver.ErrNotFound):
		log.Warn("No travel found",
			"note", txn.Note,
			"amount", model.FormatMinor(-txn.Amount),
			"error", err,
		)
		return skipped(out, SkipNoTravel, err)
	case err != nil:
		log.Error("Could not resolve travel date", "note", txn.Note, "error", err)
		return skipped(out, SkipUnresolved, err)
	}

	out.TravelDate = match.TravelDate
	if match.TravelDate.Month() != match.NotedMonth {
		log.Warn("Travel date month differs from note",
			"travel_date", match.TravelDate.Format(time.DateOnly),
			"noted_month", match.NotedMonth.String(),
		)
	}

	rcpt := r.builder.Build(txn, match.Fares)
	out.ExternalID = rcpt.ExternalID
	out.Total = rcpt.Total
	out.Items = len(rcpt.Items)

	if itemsTotal := receipt.ItemsTotal(rcpt); itemsTotal != rcpt.Total {
		log.Debug("Fares do not add up to transaction",
			"total", model.FormatMinor(rcpt.Total),
			"fares", model.FormatMinor(itemsTotal),
		)
	}

	settled, _ := txn.SettledDate()
	if r.opts.DryRun {
		log.Info("Would upload receipt",
			"settled", settled.Format(time.DateOnly),
			"travel_date", match.TravelDate.Format(time.DateOnly),
			"total", model.FormatMinor(rcpt.Total),
			"items", len(rcpt.Items),
		)
		out.Status = StatusDryRun
		return out
	}

	if err := r.uploader.UploadReceipt(ctx, rcpt); err != nil {
		log.Error("Receipt upload failed", "external_id", rcpt.ExternalID, "error", err)
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	log.Info("Uploaded receipt",
		"settled", settled.Format(time.DateOnly),
		"travel_date", match.TravelDate.Format(time.DateOnly),
		"total", model.FormatMinor(rcpt.Total),
		"items", len(rcpt.Items),
		"external_id", rcpt.ExternalID,
	)
	out.Status = StatusUploaded
	return out
}

func skipped(out Outcome, reason SkipReason, err error) Outcome {
	out.Status = StatusSkipped
	out.Reason = reason
	out.Err = err
	return out
}
