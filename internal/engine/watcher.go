package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0x6d61/pshelper/internal/session"
)

// DefaultDebounce is how long a session must stay quiet before it is synced.
const DefaultDebounce = 2 * time.Second

// Watcher keeps the sessions of a collection in sync while files change.
// Each session is re-checked once its folders have been quiet for the
// debounce interval.
type Watcher struct {
	scanner  *Scanner
	root     string
	debounce time.Duration
	onChange func(session.Snapshot)
	onRemove func(root string)

	fsw      *fsnotify.Watcher
	sessions map[string]*session.Session
	timers   map[string]*time.Timer
	due      chan string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithChangeHandler sets a function called with the snapshot of every session
// that was added or re-checked.
func WithChangeHandler(fn func(session.Snapshot)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithRemoveHandler sets a function called when a session folder disappears.
func WithRemoveHandler(fn func(root string)) WatcherOption {
	return func(w *Watcher) {
		w.onRemove = fn
	}
}

// NewWatcher creates a watcher for the collection at root. Sessions are built
// and indexed the way s builds and indexes them.
func NewWatcher(s *Scanner, root string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		scanner:  s,
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
		sessions: make(map[string]*session.Session),
		timers:   make(map[string]*time.Timer),
		due:      make(chan string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Existing sessions are examined and
// published before the first event is handled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("engine: create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("engine: watch %s: %w", w.root, err)
	}
	dirs, err := Discover(w.root)
	if err != nil {
		return err
	}
	// Reserve every id on disk before the first fresh session takes one.
	w.scanner.Seed(dirs)
	for _, dir := range dirs {
		w.track(ctx, dir)
	}
	w.scanner.progress("watching %d session(s) in %s", len(dirs), w.root)

	defer func() {
		for _, t := range w.timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.scanner.logger.Warn("watch error", "error", err)
		case dir := <-w.due:
			w.refresh(ctx, dir)
		}
	}
}

// track starts following a session folder.
func (w *Watcher) track(ctx context.Context, dir string) {
	w.scanner.Seed([]string{dir})
	sess := w.scanner.OpenSession(dir)
	w.sessions[dir] = sess
	w.watchFolders(sess)
	w.publish(ctx, sess)
}

// watchFolders adds the session root and whichever category folders exist.
func (w *Watcher) watchFolders(sess *session.Session) {
	l := sess.Layout()
	for _, dir := range []string{sess.Root(), l.Raw, l.Processed, l.Masks} {
		if !isDir(dir) {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			w.scanner.logger.Warn("cannot watch folder", "path", dir, "error", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	dir := filepath.Join(w.root, strings.Split(rel, string(filepath.Separator))[0])

	// Entries directly under the collection root add or remove sessions.
	if dir == event.Name {
		switch {
		case event.Has(fsnotify.Create):
			if _, ok := w.sessions[dir]; !ok && isDir(dir) {
				w.scanner.logger.Info("new session folder", "session", dir)
				w.track(ctx, dir)
			}
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			w.forget(ctx, dir)
		}
		return
	}

	sess, ok := w.sessions[dir]
	if !ok {
		return
	}
	// The session writes its own record; reacting to it would loop.
	if filepath.Dir(event.Name) == dir && base == w.scanner.config.RecordName {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchFolders(sess)
		}
	}
	w.schedule(ctx, dir)
}

// schedule (re)starts the debounce timer of a session.
func (w *Watcher) schedule(ctx context.Context, dir string) {
	if t, ok := w.timers[dir]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[dir] = time.AfterFunc(w.debounce, func() {
		select {
		case w.due <- dir:
		case <-ctx.Done():
		}
	})
}

// refresh re-checks a session whose folders have gone quiet.
func (w *Watcher) refresh(ctx context.Context, dir string) {
	delete(w.timers, dir)
	sess, ok := w.sessions[dir]
	if !ok {
		return
	}

	if !sess.Initialized() {
		// A record may have been written by someone else.
		sess.Examine()
	} else {
		changed, err := sess.Sync(false)
		if err != nil {
			w.scanner.logger.Warn("cannot sync session", "session", dir, "error", err)
		}
		if changed {
			sess.AutoSetStatus(false)
			if err := sess.Save(); err != nil {
				w.scanner.logger.Warn("cannot save session", "session", dir, "error", err)
			}
			w.scanner.progress("resynced %s", sess.Folder())
		}
	}
	w.watchFolders(sess)
	w.publish(ctx, sess)
}

func (w *Watcher) forget(ctx context.Context, dir string) {
	if _, ok := w.sessions[dir]; !ok {
		return
	}
	delete(w.sessions, dir)
	if t, ok := w.timers[dir]; ok {
		t.Stop()
		delete(w.timers, dir)
	}
	w.scanner.logger.Info("session folder removed", "session", dir)
	if idx := w.scanner.indexer; idx != nil {
		if err := idx.Delete(ctx, dir); err != nil {
			w.scanner.logger.Warn("cannot drop session from catalog", "session", dir, "error", err)
		}
	}
	if w.onRemove != nil {
		w.onRemove(dir)
	}
}

func (w *Watcher) publish(ctx context.Context, sess *session.Session) {
	snap := sess.Snapshot()
	if idx := w.scanner.indexer; idx != nil {
		if err := idx.Upsert(ctx, snap); err != nil {
			w.scanner.logger.Warn("cannot index session", "session", snap.Root, "error", err)
		}
	}
	if w.onChange != nil {
		w.onChange(snap)
	}
}
