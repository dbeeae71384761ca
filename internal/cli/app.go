package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0x6d61/pshelper/internal/catalog"
	"github.com/0x6d61/pshelper/internal/config"
	"github.com/0x6d61/pshelper/internal/descriptor"
	"github.com/0x6d61/pshelper/internal/engine"
	"github.com/0x6d61/pshelper/internal/logger"
	"github.com/0x6d61/pshelper/internal/report"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// app is the state shared by every command: the effective configuration
// (config file plus flag overrides), the logger and, once opened, the catalog.
type app struct {
	cfg     *config.Config
	verbose int
	format  string
	output  string
	out     io.Writer
	log     *slog.Logger
	store   *catalog.SQLiteStore
}

// setup loads the config file, applies the persistent flags on top of it and
// configures logging.
func setup(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	catalogPath, _ := cmd.Flags().GetString("catalog")
	sortBy, _ := cmd.Flags().GetString("sort")
	verbose, _ := cmd.Flags().GetInt("verbose")
	logFile, _ := cmd.Flags().GetString("log-file")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Catalog = catalogPath
	}
	if sortBy != "" {
		if _, err := status.ParseField(sortBy); err != nil {
			return nil, fmt.Errorf("invalid --sort: %w", err)
		}
		cfg.SortBy = sortBy
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}

	level := cfg.Log.Level
	if verbose == 1 && (level == "warn" || level == "error") {
		level = "info"
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}
	if verbose >= 2 {
		logger.SetDebug(true)
	}
	if cfg.Log.File != "" {
		if err := logger.Init(cfg.Log.File); err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:     cfg,
		verbose: verbose,
		format:  format,
		output:  outputPath,
		out:     cmd.OutOrStdout(),
		log:     logger.WithComponent("cli"),
	}, nil
}

// close releases the catalog and the log file.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.cfg.Log.File != "" {
		logger.Close()
	}
}

// openCatalog opens the catalog database once.
func (a *app) openCatalog() (*catalog.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := catalog.Open(a.cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %q: %w", a.cfg.Catalog, err)
	}
	a.store = store
	return store, nil
}

// scanner builds an engine.Scanner from the effective config. A nil store
// leaves the catalog out.
func (a *app) scanner(store *catalog.SQLiteStore) *engine.Scanner {
	opts := []engine.ScannerOption{
		engine.WithSummarizer(descriptor.Sidecar{}),
		engine.WithLogger(logger.WithComponent("engine")),
	}
	if store != nil {
		opts = append(opts, engine.WithIndexer(store))
	}
	s := engine.NewScanner(a.cfg.ScanConfig(), opts...)
	if a.verbose > 0 {
		s.SetProgressCallback(func(msg string) {
			fmt.Fprintf(os.Stderr, "[*] %s\n", msg)
		})
	}
	return s
}

// collection resolves the collection directory from the first argument or
// the config.
func (a *app) collection(args []string) (string, error) {
	dir := a.cfg.Collection
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return "", fmt.Errorf("collection directory is required (pass it as an argument or set collection in the config)")
	}
	return filepath.Abs(dir)
}

// openSession examines the session at dir. The registry is first seeded
// with the ids claimed by the sibling sessions so that a session without an
// id of its own gets the next free one.
func (a *app) openSession(dir string) (*session.Session, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("session directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("session directory %q is not a directory", dir)
	}

	s := a.scanner(nil)
	if siblings, err := engine.Discover(filepath.Dir(dir)); err == nil {
		others := siblings[:0]
		for _, sib := range siblings {
			if sib != dir {
				others = append(others, sib)
			}
		}
		s.Seed(others)
	}
	return s.OpenSession(dir), nil
}

// publish refreshes the catalog entry of sess. Failures are logged only: the
// record next to the images is what counts.
func (a *app) publish(ctx context.Context, sess *session.Session) {
	store, err := a.openCatalog()
	if err != nil {
		a.log.Warn("catalog not updated", "session", sess.Root(), "error", err)
		return
	}
	if err := store.Upsert(ctx, sess.Snapshot()); err != nil {
		a.log.Warn("catalog not updated", "session", sess.Root(), "error", err)
	}
}

// render writes listing in the configured format to stdout or --output.
func (a *app) render(ctx context.Context, listing *report.Listing, detailed bool) error {
	reporter, err := report.New(a.format)
	if err != nil {
		return fmt.Errorf("unknown report format %q: %w", a.format, err)
	}
	if tr, ok := reporter.(*report.TextReporter); ok && (detailed || a.verbose > 1) {
		tr.Verbose = 1
	}

	out := a.out
	if a.output != "" {
		f, err := os.Create(a.output)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", a.output, err)
		}
		defer f.Close()
		out = f
	}

	if err := reporter.Generate(ctx, listing, out); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}

// signalContext returns a context cancelled by CTRL+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
