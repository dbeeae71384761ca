package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x6d61/pshelper/internal/engine"
	"github.com/0x6d61/pshelper/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep session records in sync while their files change",
	Long: `Watch examines the collection, then follows file changes: a session whose
folders have been quiet for the debounce interval is re-checked and its
record re-derived when out of sync. New session folders are picked up and
removed ones dropped from the catalog. Stop with CTRL+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("debounce", engine.DefaultDebounce, "Quiet interval before a changed session is re-checked")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	debounce, _ := cmd.Flags().GetDuration("debounce")
	root, err := a.collection(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := a.openCatalog()
	if err != nil {
		return err
	}

	out := a.out
	w := engine.NewWatcher(a.scanner(store), root,
		engine.WithDebounce(debounce),
		engine.WithChangeHandler(func(snap session.Snapshot) {
			fmt.Fprintf(out, "[*] %s: %s (%s)\n", snap.Folder(), snap.Status, syncState(snap))
		}),
		engine.WithRemoveHandler(func(dir string) {
			fmt.Fprintf(out, "[-] %s removed\n", dir)
		}),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "[*] Watching %s (CTRL+C to stop)\n", root)
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func syncState(s session.Snapshot) string {
	switch {
	case s.Ignored:
		return "ignored"
	case !s.Initialized:
		return "awaiting approval"
	case !s.Synchronized:
		return "out of sync"
	default:
		return "in sync"
	}
}
