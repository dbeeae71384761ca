package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x6d61/pshelper/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan a collection directory and bring its session records up to date",
	Long: `Scan examines every session folder of the collection directory, re-derives
records that no longer match the files on disk and updates the catalog.

Folders without a record are listed as awaiting approval; --auto-approve
converts them into the Raw, Processed and Masks layout instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("auto-approve", false, "Convert folders that have no record yet")
	scanCmd.Flags().Bool("no-resync", false, "Leave out-of-sync records untouched")
	scanCmd.Flags().Int("workers", 0, "Number of concurrent workers (overrides config)")
	scanCmd.Flags().Float64("rate", 0, "Maximum sessions handled per second, 0 = unlimited (overrides config)")
}

// runScan is the scan command handler: config → scanner → scan → report.
func runScan(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("auto-approve") {
		a.cfg.AutoApprove, _ = cmd.Flags().GetBool("auto-approve")
	}
	if noResync, _ := cmd.Flags().GetBool("no-resync"); noResync {
		a.cfg.Resync = false
	}
	if cmd.Flags().Changed("workers") {
		a.cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("rate") {
		a.cfg.MaxOpsPerSecond, _ = cmd.Flags().GetFloat64("rate")
	}

	root, err := a.collection(args)
	if err != nil {
		return err
	}

	// CTRL+C cancels the scan gracefully.
	ctx, cancel := signalContext()
	defer cancel()

	store, err := a.openCatalog()
	if err != nil {
		return err
	}
	scanner := a.scanner(store)

	if a.verbose > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "[*] Starting scan of: %s\n", root)
	}
	result, err := scanner.Scan(ctx, root)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}

	return a.render(ctx, report.FromScan(result), false)
}
