package session

import (
	"cmp"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/0x6d61/pshelper/internal/classify"
	"github.com/0x6d61/pshelper/internal/exposure"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/status"
)

// Snapshot is a point-in-time copy of a session, detached from its lock.
type Snapshot struct {
	Root        string    `json:"root"`
	ID          uint64    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Notes       []string  `json:"notes,omitempty"`
	CapturedAt  time.Time `json:"captured_at,omitzero"`

	Status       status.Status `json:"status"`
	Initialized  bool          `json:"initialized"`
	Synchronized bool          `json:"synchronized"`
	Ignored      bool          `json:"explicitly_ignored"`
	Mismatch     string        `json:"mismatch,omitempty"`

	ProjectFile  string `json:"project_file,omitempty"`
	RawDir       string `json:"raw_dir"`
	ProcessedDir string `json:"processed_dir"`
	MasksDir     string `json:"masks_dir"`

	RawCount       int `json:"raw_count"`
	ProcessedCount int `json:"processed_count"`
	MaskCount      int `json:"mask_count"`

	ChunkCount       int               `json:"chunk_count"`
	ActiveChunkIndex int               `json:"active_chunk_index"`
	Metrics          status.Metrics    `json:"metrics"`
	Exposure         exposure.Settings `json:"exposure"`
}

// Snapshot copies the session state. Counts are verified first unless the
// session is ignored.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Root:         s.root,
		ID:           s.id,
		Name:         s.name,
		Description:  s.description,
		Notes:        append([]string(nil), s.notes...),
		CapturedAt:   s.capturedAt,
		Status:       s.status,
		Initialized:  s.initialized,
		Synchronized: s.synchronized,
		Ignored:      s.ignored,
		ProjectFile:  s.project,
		RawDir:       s.layout.Raw,
		ProcessedDir: s.layout.Processed,
		MasksDir:     s.layout.Masks,
		Exposure:     exposure.Default,
	}
	if s.mismatch != fingerprint.MismatchNone {
		snap.Mismatch = s.mismatch.String()
	}
	if s.exposure != nil {
		snap.Exposure = *s.exposure
	}
	snap.Metrics = s.metricsLocked()
	snap.RawCount = snap.Metrics.RawCount
	snap.ProcessedCount = snap.Metrics.ProcessedCount
	snap.MaskCount = s.countLocked(classify.CategoryMasks)
	if s.chunk != nil {
		snap.ChunkCount = s.chunk.ChunkCount
		snap.ActiveChunkIndex = s.chunk.ActiveChunkIndex
	}
	return snap
}

// Folder returns the base name of the session directory.
func (s Snapshot) Folder() string { return filepath.Base(s.Root) }

// Compare orders s against o by field f: negative when s sorts first.
func (s Snapshot) Compare(o Snapshot, f status.Field) int {
	switch f {
	case status.FieldID:
		return cmp.Compare(s.ID, o.ID)
	case status.FieldName:
		return strings.Compare(s.Name, o.Name)
	case status.FieldCaptureDate:
		return compareDates(s.CapturedAt, o.CapturedAt)
	case status.FieldImageCount:
		return cmp.Compare(s.ProcessedCount, o.ProcessedCount)
	case status.FieldStatus:
		return cmp.Compare(s.Status, o.Status)
	case status.FieldAlignLevel:
		return strings.Compare(status.DescribeAlign(s.Metrics), status.DescribeAlign(o.Metrics))
	case status.FieldDenseCloudLevel:
		return cmp.Compare(status.DenseCloudScore(s.Metrics), status.DenseCloudScore(o.Metrics))
	case status.FieldModelLevel:
		return cmp.Compare(s.Metrics.FaceCount(), o.Metrics.FaceCount())
	case status.FieldTextureLevel:
		return strings.Compare(status.DescribeTexture(s.Metrics), status.DescribeTexture(o.Metrics))
	default:
		return strings.Compare(s.Folder(), o.Folder())
	}
}

// compareDates puts sessions without a capture date after dated ones.
func compareDates(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

// Compare orders s against o by field f.
func (s *Session) Compare(o *Session, f status.Field) int {
	return s.Snapshot().Compare(o.Snapshot(), f)
}

// SortSnapshots sorts snaps by f, keeping the input order of equal entries.
func SortSnapshots(snaps []Snapshot, f status.Field) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Compare(snaps[j], f) < 0
	})
}

// Sort sorts sessions by f. Each session is snapshotted once.
func Sort(sessions []*Session, f status.Field) {
	type entry struct {
		s    *Session
		snap Snapshot
	}
	entries := make([]entry, len(sessions))
	for i, s := range sessions {
		entries[i] = entry{s, s.Snapshot()}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].snap.Compare(entries[j].snap, f) < 0
	})
	for i, e := range entries {
		sessions[i] = e.s
	}
}
