package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/farereceipts/internal/config"
)

func newInitCommand() *cobra.Command {
	var faresDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default config and create the fare statements folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, faresDir, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized farereceipts at %s\n", absDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Put fare statement CSV exports in %s\n", filepath.Join(absDir, faresDir))
			return nil
		},
	}

	cmd.Flags().StringVar(&faresDir, "fares-dir", config.Default().Fares.Dir, "fare statements folder, relative to the directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

// historyIgnore keeps the run history out of version control.
const historyIgnore = ".farereceipts/"

func runInit(dir, faresDir string, force bool) error {
	if err := os.MkdirAll(filepath.Join(dir, faresDir), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", faresDir, err)
	}

	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Fares.Dir = faresDir
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := ensureIgnored(filepath.Join(dir, ".gitignore"), historyIgnore); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, faresDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	return nil
}

// ensureIgnored appends pattern to the ignore file at path unless a line
// already lists it. Existing entries are kept.
func ensureIgnored(path, pattern string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == pattern || line == strings.TrimSuffix(pattern, "/") {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	entry := pattern + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return err
	}
	return f.Close()
}
