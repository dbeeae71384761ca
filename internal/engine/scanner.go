package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/0x6d61/pshelper/internal/descriptor"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// Scanner orchestrates a scan of a collection directory.
type Scanner struct {
	config     *ScanConfig
	logger     *slog.Logger
	registry   *session.Registry
	summarizer descriptor.Summarizer
	indexer    Indexer
	limiter    *rate.Limiter

	// Progress callback
	onProgress func(msg string)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithRegistry sets the registry sessions allocate ids from. Scanners that
// share a registry share the id counter and the approval list.
func WithRegistry(reg *session.Registry) ScannerOption {
	return func(s *Scanner) {
		s.registry = reg
	}
}

// WithSummarizer sets the descriptor summarizer handed to every session.
func WithSummarizer(sum descriptor.Summarizer) ScannerOption {
	return func(s *Scanner) {
		s.summarizer = sum
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithIndexer sets where snapshots are published after a scan.
func WithIndexer(idx Indexer) ScannerOption {
	return func(s *Scanner) {
		s.indexer = idx
	}
}

// NewScanner creates a scanner with all components wired up.
func NewScanner(config *ScanConfig, opts ...ScannerOption) *Scanner {
	if config == nil {
		config = DefaultScanConfig()
	}
	if config.RecordName == "" {
		config.RecordName = fingerprint.DefaultFileName
	}

	s := &Scanner{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = session.NewRegistry()
	}
	if s.summarizer == nil {
		s.summarizer = descriptor.Unavailable{}
	}
	if config.MaxOpsPerSecond > 0 {
		burst := int(config.MaxOpsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(config.MaxOpsPerSecond), burst)
	}
	s.registry.SetSortField(config.SortBy)
	return s
}

// Registry returns the registry the scanner allocates ids from.
func (s *Scanner) Registry() *session.Registry { return s.registry }

// SetProgressCallback sets a function called with status messages. It may be
// called from several workers at once.
func (s *Scanner) SetProgressCallback(fn func(string)) {
	s.onProgress = fn
}

// progress sends a status message via the progress callback if set.
func (s *Scanner) progress(format string, args ...any) {
	if s.onProgress != nil {
		s.onProgress(fmt.Sprintf(format, args...))
	}
}

// sessionOptions are the options every session of this scanner is built with.
func (s *Scanner) sessionOptions() []session.Option {
	return []session.Option{
		session.WithSummarizer(s.summarizer),
		session.WithLogger(s.logger),
		session.WithRecordName(s.config.RecordName),
	}
}

// NewSession returns an unexamined session for dir wired like the ones a
// scan creates.
func (s *Scanner) NewSession(dir string) *session.Session {
	return session.New(dir, s.registry, s.sessionOptions()...)
}

// OpenSession returns an examined session for dir.
func (s *Scanner) OpenSession(dir string) *session.Session {
	return session.Open(dir, s.registry, s.sessionOptions()...)
}

// Seed moves the registry counter past every id already claimed by dirs: the
// id stored in a record, or for folders without a readable one, the id of a
// "<id> <name>" folder name. Sessions created afterwards get unused ids.
func (s *Scanner) Seed(dirs []string) {
	for _, dir := range dirs {
		rec, err := fingerprint.Load(filepath.Join(dir, s.config.RecordName))
		if err == nil && rec.General.ID != 0 {
			s.registry.Observe(rec.General.ID)
			continue
		}
		if id, _, err := session.ParseFolderName(filepath.Base(dir)); err == nil {
			s.registry.Observe(id)
		}
	}
}

// Discover lists the candidate session directories of root: its immediate
// sub-directories, hidden ones skipped, sorted by name.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("engine: discover %s: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, filepath.Join(root, e.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Scan runs the full pipeline against a collection directory.
//
// Pipeline:
//  1. Discover session directories
//  2. Create sessions in directory order so ids are allocated predictably
//  3. Examine every session (records loaded, approvals queued)
//  4. Settle every session: convert pending ones when auto-approve is on,
//     re-derive stale records when resync is on
//  5. Sort, snapshot and publish to the indexer
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	root = filepath.Clean(root)
	result := &ScanResult{
		ID:        uuid.New(),
		Root:      root,
		StartTime: time.Now(),
	}
	defer func() {
		result.EndTime = time.Now()
	}()

	// Step 0: Check context before starting.
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("scan cancelled before start: %w", err)
	}

	// Step 1: Discover.
	dirs, err := Discover(root)
	if err != nil {
		return result, err
	}
	if len(dirs) == 0 {
		s.progress("no session directories found in %s", root)
	} else {
		s.progress("found %d session folder(s) in %s", len(dirs), root)
	}

	// Step 2: Create. Ids already claimed on disk are reserved first.
	s.registry.ClearApproval()
	s.Seed(dirs)
	sessions := make([]*session.Session, len(dirs))
	for i, dir := range dirs {
		sessions[i] = s.NewSession(dir)
	}

	// Step 3: Examine.
	examined := newWorkerPool(s.config.Workers, s.limiter, s.logger).run(ctx, sessions, s.examine)
	s.collect(result, examined)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("scan cancelled: %w", err)
	}
	s.progress("examined %d session(s), %d awaiting approval",
		len(sessions), len(s.registry.NeedsApproval()))

	// Step 4: Settle.
	settled := newWorkerPool(s.config.Workers, s.limiter, s.logger).run(ctx, sessions, s.settle)
	s.collect(result, settled)
	for _, out := range settled {
		if out.converted {
			result.Converted++
		}
		if out.resynced {
			result.Resynced++
		}
		if out.ignored {
			result.Ignored++
		}
	}
	for _, p := range s.registry.NeedsApproval() {
		if !p.Initialized() {
			result.PendingApproval = append(result.PendingApproval, p)
		}
	}
	session.Sort(result.PendingApproval, status.FieldFolder)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("scan cancelled: %w", err)
	}
	s.progress("settled: %d converted, %d resynced, %d ignored",
		result.Converted, result.Resynced, result.Ignored)

	// Step 5: Sort and publish.
	session.Sort(sessions, s.registry.SortField())
	result.Sessions = sessions
	result.Snapshots = make([]session.Snapshot, len(sessions))
	for i, sess := range sessions {
		result.Snapshots[i] = sess.Snapshot()
	}
	s.publish(ctx, result)

	s.progress("scan complete: %d session(s), %d pending approval, %d error(s)",
		len(result.Sessions), len(result.PendingApproval), len(result.Errors))
	return result, nil
}

func (s *Scanner) collect(result *ScanResult, outcomes []outcome) {
	for _, out := range outcomes {
		if out.err != nil {
			result.Errors = append(result.Errors, out.err)
		}
	}
}

// examine is the first pass.
func (s *Scanner) examine(_ context.Context, sess *session.Session) outcome {
	sess.Examine()
	return outcome{}
}

// settle is the second pass.
func (s *Scanner) settle(_ context.Context, sess *session.Session) outcome {
	var out outcome
	switch {
	case sess.ExplicitlyIgnored():
		out.ignored = true
	case !sess.Initialized():
		if !s.config.AutoApprove {
			out.pending = true
			return out
		}
		if err := sess.ConvertDefault(); err != nil {
			out.err = fmt.Errorf("engine: convert %s: %w", sess.Root(), err)
			return out
		}
		out.converted = true
		s.progress("converted %s", sess.Folder())
	case s.config.Resync:
		changed, err := sess.Sync(false)
		if err != nil {
			out.err = fmt.Errorf("engine: sync %s: %w", sess.Root(), err)
			return out
		}
		if !changed {
			return out
		}
		sess.AutoSetStatus(false)
		if err := sess.Save(); err != nil {
			out.err = fmt.Errorf("engine: save %s: %w", sess.Root(), err)
			return out
		}
		out.resynced = true
		s.progress("resynced %s", sess.Folder())
	}
	return out
}

// publish hands the snapshots to the indexer. Failures are recorded in the
// result, never fatal.
func (s *Scanner) publish(ctx context.Context, result *ScanResult) {
	if s.indexer == nil {
		return
	}
	keep := make([]string, 0, len(result.Snapshots))
	for _, snap := range result.Snapshots {
		keep = append(keep, snap.Root)
		if err := s.indexer.Upsert(ctx, snap); err != nil {
			s.logger.Warn("cannot index session", "session", snap.Root, "error", err)
			result.Errors = append(result.Errors, err)
		}
	}
	if pruned, err := s.indexer.Prune(ctx, result.Root, keep); err != nil {
		s.logger.Warn("cannot prune catalog", "collection", result.Root, "error", err)
		result.Errors = append(result.Errors, err)
	} else if pruned > 0 {
		s.progress("removed %d vanished session(s) from the catalog", pruned)
	}

	result.EndTime = time.Now()
	if err := s.indexer.RecordScan(ctx, result.Record()); err != nil {
		s.logger.Warn("cannot record scan", "error", err)
		result.Errors = append(result.Errors, err)
	}
}
