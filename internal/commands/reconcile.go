package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/cleared-dev/farereceipts/internal/accounts"
	"github.com/cleared-dev/farereceipts/internal/bank"
	"github.com/cleared-dev/farereceipts/internal/config"
	"github.com/cleared-dev/farereceipts/internal/fares"
	"github.com/cleared-dev/farereceipts/internal/history"
	"github.com/cleared-dev/farereceipts/internal/importer"
	"github.com/cleared-dev/farereceipts/internal/logging"
	"github.com/cleared-dev/farereceipts/internal/model"
	"github.com/cleared-dev/farereceipts/internal/receipt"
	"github.com/cleared-dev/farereceipts/internal/reconcile"
	"github.com/cleared-dev/farereceipts/internal/resolver"
)

type reconcileOptions struct {
	dryRun  bool
	verbose bool
}

func runReconcile(cmd *cobra.Command, configPath string, opts reconcileOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())

	policy, err := reconcile.ParsePolicy(cfg.Reconcile.OnUploadFailure)
	if err != nil {
		return err
	}

	// Fare statements are read before authorising so a bad export fails fast.
	ledger := fares.NewLedger()
	files, err := importer.LoadLedger(cfg.Fares.Dir, ledger)
	if err != nil {
		return fmt.Errorf("loading fare statements: %w", err)
	}
	logger.Info("Loaded fare statements", "dir", cfg.Fares.Dir, "files", len(files), "dates", ledger.Len())

	authorizer := &bank.Authorizer{
		Config: oauthConfig(cfg.Auth),
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
	}
	ts, err := authorizer.TokenSource(ctx)
	if err != nil {
		return fmt.Errorf("authorising: %w", err)
	}
	client := bank.NewClient(oauth2.NewClient(ctx, ts), cfg.Bank.BaseURL)

	user, err := client.Whoami(ctx)
	if err != nil {
		return err
	}
	logger.Info("Authenticated", "user_id", user)

	accts, err := client.ListAccounts(ctx)
	if err != nil {
		return err
	}
	acct, err := accounts.SelectPersonal(accts, model.AccountType(cfg.Bank.AccountType))
	if err != nil {
		return err
	}
	logger.Info("Using account", "account_id", acct.ID, "description", acct.Description)

	res := resolver.New(ledger, resolver.Options{
		WindowDays:       cfg.Reconcile.SettlementWindowDays,
		NotePrefixLength: cfg.Reconcile.NotePrefixLength,
	})
	builder := receipt.NewBuilder(
		receipt.WithCurrency(cfg.Receipt.Currency),
		receipt.WithTax(cfg.Receipt.Tax),
	)
	rec := reconcile.New(client.Source(acct.ID), client, res, builder, reconcile.Options{
		Merchant:      cfg.Reconcile.Merchant,
		CardCheckNote: cfg.Reconcile.CardCheckNote,
		Policy:        policy,
		DryRun:        opts.dryRun,
	}, logger)

	started := time.Now()
	report, runErr := rec.Run(ctx)
	finished := time.Now()

	if report != nil {
		printSummary(cmd.OutOrStdout(), report, opts.dryRun)
	}

	if cfg.History.DatabasePath != "" {
		run := newHistoryRun(report, runErr, started, finished)
		run.DryRun = opts.dryRun
		run.Policy = string(policy)
		run.FareFiles = len(files)
		run.FareDates = ledger.Len()
		saveHistory(ctx, logger, cfg.History.DatabasePath, run)
	}

	return runErr
}

func oauthConfig(auth config.AuthConfig) *oauth2.Config {
	authURL := auth.AuthURL
	if authURL == "" {
		authURL = bank.DefaultAuthURL
	}
	tokenURL := auth.TokenURL
	if tokenURL == "" {
		tokenURL = bank.DefaultTokenURL
	}
	return &oauth2.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		RedirectURL:  auth.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func newHistoryRun(report *reconcile.Report, runErr error, started, finished time.Time) history.Run {
	run := history.Run{StartedAt: started, FinishedAt: finished}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if report == nil {
		return run
	}

	run.Uploaded = report.Count(reconcile.StatusUploaded)
	run.Skipped = report.Count(reconcile.StatusSkipped)
	run.Failed = report.Count(reconcile.StatusFailed)
	run.ReceiptedTotal = report.ReceiptedTotal()
	for _, o := range report.Outcomes {
		ho := history.Outcome{
			TransactionID: o.TransactionID,
			Status:        string(o.Status),
			Reason:        string(o.Reason),
			ExternalID:    o.ExternalID,
			Amount:        o.Amount,
			Total:         o.Total,
		}
		if !o.TravelDate.IsZero() {
			ho.TravelDate = o.TravelDate.Format(time.DateOnly)
		}
		if o.Err != nil {
			ho.Error = o.Err.Error()
		}
		run.Outcomes = append(run.Outcomes, ho)
	}
	return run
}

// saveHistory records the run. Failures are logged, never returned: the
// uploads have already happened.
func saveHistory(ctx context.Context, logger *slog.Logger, path string, run history.Run) {
	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Warn("Could not open run history", "path", path, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	id, err := store.SaveRun(ctx, run)
	if err != nil {
		logger.Warn("Could not save run history", "path", path, "error", err)
		return
	}
	logger.Debug("Saved run history", "run_id", id)
}
