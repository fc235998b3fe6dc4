package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/farereceipts/internal/buildinfo"
	"github.com/cleared-dev/farereceipts/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
// Run without a subcommand it reconciles fares against the bank account.
func NewRootCommand() *cobra.Command {
	var configPath string
	var opts reconcileOptions

	rootCmd := &cobra.Command{
		Use:   "farereceipts",
		Short: "Attach transit fare receipts to bank transactions",
		Long: "Reads fare statement CSV exports, matches each transit charge on the\n" +
			"bank account to the journeys of its travel date and uploads one\n" +
			"itemised receipt per charge.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		Args:    cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, configPath, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "match and build receipts without uploading them")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newHistoryCommand(&configPath))

	return rootCmd
}
