// Package session tracks a single photogrammetry session directory. A Session
// examines its directory, sorts loose images into the category folders,
// keeps the persisted record in step with the filesystem and derives the
// pipeline status from the cached metrics.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/0x6d61/pshelper/internal/classify"
	"github.com/0x6d61/pshelper/internal/descriptor"
	"github.com/0x6d61/pshelper/internal/exposure"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/logger"
	"github.com/0x6d61/pshelper/internal/status"
)

var categories = [...]classify.Category{
	classify.CategoryRaw,
	classify.CategoryProcessed,
	classify.CategoryMasks,
}

// Session is one tracked directory. All methods are safe for concurrent use;
// calls on the same Session are serialized.
type Session struct {
	mu sync.Mutex

	reg        *Registry
	summarizer descriptor.Summarizer
	log        *slog.Logger
	recordName string

	root    string
	layout  classify.Layout
	project string // first descriptor file found, "" if none

	id          uint64
	name        string
	description string
	notes       []string
	capturedAt  time.Time
	status      status.Status

	initialized  bool
	synchronized bool
	ignored      bool
	needsResync  bool
	mismatch     fingerprint.Mismatch

	chunk    *fingerprint.ChunkData
	exposure *exposure.Settings
	saved    fingerprint.Fingerprints

	counts [len(categories)]Cached[int]
	files  [len(categories)][]string

	// blockWrites suppresses saves while several cached values are being
	// recomputed together.
	blockWrites bool
}

// Option configures a Session.
type Option func(*Session)

// WithSummarizer sets the descriptor summarizer. Without one every
// descriptor is treated as unreadable.
func WithSummarizer(sum descriptor.Summarizer) Option {
	return func(s *Session) {
		if sum != nil {
			s.summarizer = sum
		}
	}
}

// WithLogger sets the logger warnings are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l.With("session", s.root)
		}
	}
}

// WithRecordName overrides the record file name.
func WithRecordName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.recordName = name
		}
	}
}

// New returns a session for root with a freshly allocated id. The directory
// is not read until Examine or Convert is called.
func New(root string, reg *Registry, opts ...Option) *Session {
	if reg == nil {
		reg = NewRegistry()
	}
	root = filepath.Clean(root)
	s := &Session{
		reg:        reg,
		summarizer: descriptor.Unavailable{},
		recordName: fingerprint.DefaultFileName,
		root:       root,
		layout:     classify.Classify(root),
		id:         reg.Allocate(),
	}
	for i := range s.counts {
		s.counts[i] = NewCached(-1, -1)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithSession(root)
	}
	return s
}

// Open is New followed by Examine.
func Open(root string, reg *Registry, opts ...Option) *Session {
	s := New(root, reg, opts...)
	s.Examine()
	return s
}

// Examine locates the descriptor and loads the persisted record. A directory
// without a record is queued for approval in the registry. Image counts are
// left as loaded and verified on first access.
func (s *Session) Examine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examineLocked()
}

func (s *Session) examineLocked() {
	s.locateProjectLocked()
	s.capturedAt = time.Time{}

	rec, err := fingerprint.Load(s.recordPath())
	switch {
	case errors.Is(err, fingerprint.ErrNotFound):
		s.initialized = false
		s.synchronized = false
		s.reg.QueueApproval(s)
		return
	case err != nil:
		s.log.Warn("record unreadable, falling back to defaults", "error", err)
		s.apply(fingerprint.NewRecord())
		s.initialized = true
		s.synchronized = false
		s.needsResync = true
		return
	}

	s.apply(rec)
	if s.ignored {
		return
	}
	if !s.initialized {
		s.reg.QueueApproval(s)
	}

	s.mismatch = fingerprint.Check(s.saved, s.liveLocked())
	s.synchronized = s.mismatch == fingerprint.MismatchNone
	if !s.synchronized {
		s.log.Warn("record out of sync", "mismatch", s.mismatch.String())
	}
}

func (s *Session) locateProjectLocked() {
	s.project = ""
	projects, err := classify.FindProjects(s.root)
	if err != nil {
		s.log.Warn("cannot list project files", "error", err)
		return
	}
	if len(projects) == 0 {
		return
	}
	s.project = projects[0]
	if len(projects) > 1 {
		s.log.Warn("more than one project file, using the first",
			"project", filepath.Base(s.project), "found", len(projects))
	}
}

// apply copies a loaded record into the session.
func (s *Session) apply(rec *fingerprint.Record) {
	g := rec.General
	s.ignored = g.ExplicitlyIgnored
	s.initialized = g.IsInitialized
	if s.ignored {
		return
	}

	if g.ID != 0 {
		s.id = g.ID
		s.reg.Observe(g.ID)
	}
	s.name = g.Name
	s.description = g.Description
	s.notes = append([]string(nil), g.Notes...)
	s.capturedAt = g.CapturedAt
	s.status = status.Status(g.Status)
	if !s.status.Valid() {
		s.log.Warn("unknown status in record", "status", g.Status)
		s.status = status.Unknown
	}

	s.layout = classify.Layout{
		Raw:       filepath.Join(s.root, rec.Images.RawFolder),
		Processed: filepath.Join(s.root, rec.Images.ProcessedFolder),
		Masks:     filepath.Join(s.root, rec.Images.MasksFolder),
	}
	s.counts[classify.CategoryRaw].Load(rec.Images.RawCount)
	s.counts[classify.CategoryProcessed].Load(rec.Images.ProcessedCount)
	s.counts[classify.CategoryMasks].Load(rec.Images.MaskCount)

	s.chunk = nil
	if rec.Chunk != nil {
		c := *rec.Chunk
		s.chunk = &c
	}
	s.exposure = nil
	if rec.Exposure != nil {
		e := *rec.Exposure
		s.exposure = &e
	}
	s.saved = rec.Sync
}

func (s *Session) recordPath() string {
	return filepath.Join(s.root, s.recordName)
}

func (s *Session) liveLocked() fingerprint.Fingerprints {
	return fingerprint.Live(s.project, s.layout.Raw, s.layout.Processed, s.layout.Masks)
}

func (s *Session) rel(dir string) string {
	r, err := filepath.Rel(s.root, dir)
	if err != nil {
		return dir
	}
	return r
}

// recordLocked builds the record to persist. Fingerprints are those of the
// last full derivation, so a pending mismatch survives unrelated saves.
func (s *Session) recordLocked() *fingerprint.Record {
	rec := fingerprint.NewRecord()
	rec.General = fingerprint.General{
		ID:                s.id,
		Name:              s.name,
		Description:       s.description,
		Notes:             append([]string(nil), s.notes...),
		CapturedAt:        s.capturedAt,
		Status:            int(s.status),
		ExplicitlyIgnored: s.ignored,
		IsInitialized:     s.initialized,
	}
	rec.Images = fingerprint.Images{
		RawCount:        s.counts[classify.CategoryRaw].Peek(),
		ProcessedCount:  s.counts[classify.CategoryProcessed].Peek(),
		MaskCount:       s.counts[classify.CategoryMasks].Peek(),
		RawFolder:       s.rel(s.layout.Raw),
		ProcessedFolder: s.rel(s.layout.Processed),
		MasksFolder:     s.rel(s.layout.Masks),
	}
	if s.chunk != nil {
		c := *s.chunk
		rec.Chunk = &c
	}
	rec.Sync = s.saved
	if s.exposure != nil {
		e := *s.exposure
		rec.Exposure = &e
	}
	return rec
}

// saveLocked persists the record unless writes are blocked. Ignored sessions
// only ever persist their flag.
func (s *Session) saveLocked() error {
	if s.blockWrites || s.ignored {
		return nil
	}
	if err := fingerprint.Save(s.recordPath(), s.recordLocked()); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Save persists the current state.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Root returns the session directory.
func (s *Session) Root() string { return s.root }

// RecordPath returns the path of the persisted record.
func (s *Session) RecordPath() string { return s.recordPath() }

// Folder returns the base name of the session directory.
func (s *Session) Folder() string { return filepath.Base(s.root) }

// ID returns the session id.
func (s *Session) ID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Name returns the session name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Description returns the session description.
func (s *Session) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

// Notes returns a copy of the notes.
func (s *Session) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notes...)
}

// CapturedAt returns the capture time, zero when unknown.
func (s *Session) CapturedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturedAt
}

// Status returns the current pipeline status.
func (s *Session) Status() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Initialized reports whether the session has been converted.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Synchronized reports whether the record matched the filesystem at the
// last check.
func (s *Session) Synchronized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synchronized
}

// Mismatch returns the first difference found at the last check.
func (s *Session) Mismatch() fingerprint.Mismatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mismatch
}

// ExplicitlyIgnored reports whether the user opted this session out.
func (s *Session) ExplicitlyIgnored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignored
}

// ProjectFile returns the linked descriptor path, "" if none.
func (s *Session) ProjectFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Layout returns the category folders.
func (s *Session) Layout() classify.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Exposure returns the exposure settings, or the defaults when none were
// stored.
func (s *Session) Exposure() exposure.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exposure == nil {
		return exposure.Default
	}
	return *s.exposure
}

// SetID assigns the id and moves the registry counter past it.
func (s *Session) SetID(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setIDLocked(id)
}

func (s *Session) setIDLocked(id uint64) {
	s.id = id
	s.reg.Observe(id)
}

// SetName sets the session name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// SetDescription sets the session description.
func (s *Session) SetDescription(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = desc
}

// AddNote appends a note.
func (s *Session) AddNote(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
}

// SetCapturedAt sets the capture time. The record keeps second precision.
func (s *Session) SetCapturedAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedAt = t.Truncate(time.Second)
}

// SetCustomStatus moves the session into the user-assigned range at
// TextureGenDone+offset. Offsets outside that range fall back to automatic
// derivation. It returns the resulting status.
func (s *Session) SetCustomStatus(offset int) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := status.Custom(offset); ok {
		s.status = st
		return st
	}
	s.log.Warn("custom status out of range, deriving automatically", "offset", offset)
	s.status = status.Auto(s.status, s.metricsLocked(), false)
	return s.status
}

// AutoSetStatus derives the status from the cached metrics. A user-assigned
// status is only replaced when overwriteCustom is set.
func (s *Session) AutoSetStatus(overwriteCustom bool) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status.Auto(s.status, s.metricsLocked(), overwriteCustom)
	return s.status
}

// SetExplicitlyIgnored opts the session out of (or back into) scanning. Only
// the flag is written. Clearing it reloads the rest of the record.
func (s *Session) SetExplicitlyIgnored(ignore bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fingerprint.SetFlag(s.recordPath(), "ExplicitlyIgnored", ignore); err != nil {
		return fmt.Errorf("session: set ignored: %w", err)
	}
	s.ignored = ignore
	if !ignore {
		s.examineLocked()
	}
	return nil
}

// SetExposure validates and persists the exposure settings.
func (s *Session) SetExposure(e exposure.Settings) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	e = e.Consistent()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ignored {
		return fmt.Errorf("session: %s is explicitly ignored", s.root)
	}
	s.exposure = &e
	return s.saveLocked()
}

// Metrics returns the inputs of the status engine. Reading them verifies the
// processed and raw counts.
func (s *Session) Metrics() status.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsLocked()
}

func (s *Session) metricsLocked() status.Metrics {
	m := status.Metrics{
		RawCount:       s.countLocked(classify.CategoryRaw),
		ProcessedCount: s.countLocked(classify.CategoryProcessed),
	}
	if c := s.chunk; c != nil {
		m.HasDescriptor = true
		m.ChunkImages = c.ChunkImages
		m.ChunkCameras = c.ChunkCameras
		m.AlignmentLevel = c.AlignmentLevel
		m.AlignmentFeatureLimit = c.AlignmentFeatureLimit
		m.AlignmentTieLimit = c.AlignmentTieLimit
		m.DenseCloudLevel = c.DenseCloudLevel
		m.DenseCloudImagesUsed = c.DenseCloudImagesUsed
		m.HasMesh = c.HasMesh
		m.MeshFaces = c.MeshFaces
		m.MeshVerts = c.MeshVerts
		m.TextureCount = c.TextureCount
		m.TextureWidth = c.TextureWidth
		m.TextureHeight = c.TextureHeight
	}
	return m
}
