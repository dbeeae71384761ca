package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/pshelper/internal/catalog"
	"github.com/0x6d61/pshelper/internal/report"
	"github.com/0x6d61/pshelper/internal/status"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions from the catalog",
	Long: `List reads the catalog built by the last scan; no session folder is touched.
Run "pshelper scan" first to refresh it.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent scan runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("collection", "", "Only sessions of this collection directory (default from config)")
	listCmd.Flags().String("status", "", "Only sessions with exactly this status")
	listCmd.Flags().String("min-status", "", "Only sessions at or beyond this status")
	listCmd.Flags().Bool("unsynced", false, "Only sessions whose record is out of sync")
	listCmd.Flags().Bool("all", false, "Include explicitly ignored sessions")
	listCmd.Flags().Int("limit", 0, "Maximum number of sessions, 0 = no limit")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 10, "Number of scan runs to show")
	historyCmd.Flags().Duration("prune", 0, "Delete scan runs older than this before listing (e.g. 720h)")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	collection, _ := cmd.Flags().GetString("collection")
	statusName, _ := cmd.Flags().GetString("status")
	minStatusName, _ := cmd.Flags().GetString("min-status")
	unsynced, _ := cmd.Flags().GetBool("unsynced")
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")

	q := catalog.Query{
		Unsynced:       unsynced,
		IncludeIgnored: all,
		SortBy:         a.cfg.SortField(),
		Limit:          limit,
	}
	if collection == "" {
		collection = a.cfg.Collection
	}
	if collection != "" {
		if q.Collection, err = filepath.Abs(collection); err != nil {
			return err
		}
	}
	if statusName != "" {
		st, err := status.Parse(statusName)
		if err != nil {
			return fmt.Errorf("invalid --status: %w", err)
		}
		q.Status = &st
	}
	if minStatusName != "" {
		st, err := status.Parse(minStatusName)
		if err != nil {
			return fmt.Errorf("invalid --min-status: %w", err)
		}
		q.MinStatus = &st
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := a.openCatalog()
	if err != nil {
		return err
	}
	snaps, err := store.List(ctx, q)
	if err != nil {
		return err
	}
	return a.render(ctx, &report.Listing{Collection: q.Collection, Sessions: snaps}, false)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	limit, _ := cmd.Flags().GetInt("limit")
	prune, _ := cmd.Flags().GetDuration("prune")

	ctx, cancel := signalContext()
	defer cancel()

	store, err := a.openCatalog()
	if err != nil {
		return err
	}
	if prune > 0 {
		n, err := store.CleanupScans(ctx, prune)
		if err != nil {
			return err
		}
		if a.verbose > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "[*] Deleted %d scan run(s)\n", n)
		}
	}
	scans, err := store.Scans(ctx, limit)
	if err != nil {
		return err
	}

	if strings.EqualFold(a.format, "json") {
		if scans == nil {
			scans = []catalog.ScanRecord{}
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(scans)
	}

	if len(scans) == 0 {
		fmt.Fprintln(a.out, "No scans recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tCOLLECTION\tSESSIONS\tPENDING\tCONVERTED\tRESYNCED\tERRORS")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond),
			s.Root,
			s.Sessions, s.Pending, s.Converted, s.Resynced, s.Errors)
	}
	return tw.Flush()
}
