package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/0x6d61/pshelper/internal/classify"
	"github.com/0x6d61/pshelper/internal/descriptor"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/status"
)

// ErrMalformedName is reported when a folder name is not "<id> <name>".
var ErrMalformedName = errors.New("session: folder name is not \"<id> <name>\"")

// ParseFolderName splits a folder name of the form "<id> <name>" on its first
// space.
func ParseFolderName(folder string) (uint64, string, error) {
	idPart, name, ok := strings.Cut(folder, " ")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedName, folder)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedName, folder)
	}
	return id, name, nil
}

// ConvertDefault converts the session into the default Raw, Processed and
// Masks layout.
func (s *Session) ConvertDefault() error {
	return s.Convert(classify.Classify(s.root))
}

// Convert sorts loose images into the folders of layout (masks first), takes
// the id and name from the folder name when it follows the "<id> <name>"
// convention, summarizes the descriptor, recounts every category, derives
// the status and writes the record. Only a failed save is returned; every
// other problem is logged and the conversion carries on.
func (s *Session) Convert(layout classify.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layout = layout
	moved, errs := classify.Populate(s.root, layout)
	for _, err := range errs {
		s.log.Warn("cannot sort images", "error", err)
	}
	s.log.Debug("images sorted",
		"masks", moved[classify.CategoryMasks],
		"raw", moved[classify.CategoryRaw],
		"processed", moved[classify.CategoryProcessed])

	if id, name, err := ParseFolderName(s.Folder()); err != nil {
		s.log.Warn("keeping default id and name", "error", err)
	} else {
		s.setIDLocked(id)
		s.name = name
	}

	s.locateProjectLocked()
	s.summarizeLocked()
	s.recountLocked()

	s.initialized = true
	s.status = status.Auto(s.status, s.metricsLocked(), false)
	s.markSynchronizedLocked()
	return s.saveLocked()
}

// UpdateOutOfSync re-derives everything cached from the filesystem and the
// descriptor and writes the record.
func (s *Session) UpdateOutOfSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOutOfSyncLocked()
}

func (s *Session) updateOutOfSyncLocked() error {
	s.locateProjectLocked()
	s.summarizeLocked()
	s.recountLocked()
	s.markSynchronizedLocked()
	return s.saveLocked()
}

// Sync checks the record against the live filesystem and re-derives it when
// stale or when force is set. It reports whether a re-derivation ran.
// Ignored and unconverted sessions are left alone.
func (s *Session) Sync(force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ignored || !s.initialized {
		return false, nil
	}
	if !force {
		s.locateProjectLocked()
		s.mismatch = fingerprint.Check(s.saved, s.liveLocked())
		s.synchronized = s.mismatch == fingerprint.MismatchNone && !s.needsResync
		if s.synchronized {
			return false, nil
		}
		s.log.Warn("record out of sync", "mismatch", s.mismatch.String())
	}
	return true, s.updateOutOfSyncLocked()
}

func (s *Session) markSynchronizedLocked() {
	s.saved = s.liveLocked()
	s.synchronized = true
	s.needsResync = false
	s.mismatch = fingerprint.MismatchNone
}

// summarizeLocked refreshes the cached descriptor data. A descriptor that
// cannot be summarized counts as no descriptor.
func (s *Session) summarizeLocked() {
	s.chunk = nil
	if s.project == "" {
		return
	}
	sum, err := s.summarizer.Summarize(s.project)
	if err != nil {
		s.log.Warn("descriptor unavailable, status from files only", "error", err)
		return
	}
	s.chunk = chunkFromSummary(sum)
}

func chunkFromSummary(sum *descriptor.Summary) *fingerprint.ChunkData {
	a := sum.ActiveChunk
	c := &fingerprint.ChunkData{
		ChunkCount:            sum.ChunkCount,
		ActiveChunkIndex:      sum.ActiveChunkIndex,
		ChunkImages:           a.ImageCount,
		ChunkCameras:          a.CameraCount,
		AlignmentLevel:        a.Alignment.Level,
		AlignmentFeatureLimit: a.Alignment.FeatureLimit,
		AlignmentTieLimit:     a.Alignment.TiePointLimit,
		DenseCloudLevel:       a.DenseCloud.Level,
		DenseCloudImagesUsed:  a.DenseCloud.ImagesUsed,
	}
	if a.Mesh != nil {
		c.HasMesh = true
		c.MeshFaces = a.Mesh.FaceCount
		c.MeshVerts = a.Mesh.VertexCount
	}
	if a.Texture != nil && a.Texture.Count > 0 {
		c.TextureCount = a.Texture.Count
		c.TextureWidth = a.Texture.Width
		c.TextureHeight = a.Texture.Height
	}
	return c
}

// recountLocked drops every cached count and lists the folders again without
// saving in between.
func (s *Session) recountLocked() {
	s.blockWrites = true
	defer func() { s.blockWrites = false }()
	for _, c := range categories {
		s.counts[c].Invalidate()
		s.countLocked(c)
	}
}

// countLocked returns the image count of c, listing the folder on first use.
// A count that differs from the one on record is persisted straight away.
func (s *Session) countLocked(c classify.Category) int {
	if s.ignored {
		return s.counts[c].Peek()
	}
	n, changed, err := s.counts[c].GetOrRecompute(func() (int, error) {
		files, err := classify.ListCategory(s.layout.Dir(c), c)
		if err != nil {
			return 0, err
		}
		s.files[c] = files
		return len(files), nil
	})
	if err != nil {
		s.log.Warn("cannot count images", "category", c.String(), "error", err)
		return n
	}
	if changed && s.initialized {
		if err := s.saveLocked(); err != nil {
			s.log.Warn("cannot persist image count", "category", c.String(), "error", err)
		}
	}
	return n
}

func (s *Session) count(c classify.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(c)
}

func (s *Session) fileList(c classify.Category, force bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if force {
		s.counts[c].Load(s.counts[c].Peek())
	}
	s.countLocked(c)
	return append([]string(nil), s.files[c]...)
}

// RawCount returns the number of raw images.
func (s *Session) RawCount() int { return s.count(classify.CategoryRaw) }

// ProcessedCount returns the number of processed images.
func (s *Session) ProcessedCount() int { return s.count(classify.CategoryProcessed) }

// MaskCount returns the number of mask images.
func (s *Session) MaskCount() int { return s.count(classify.CategoryMasks) }

// RawFiles lists the raw images. force lists the folder again even when the
// count was already verified.
func (s *Session) RawFiles(force bool) []string { return s.fileList(classify.CategoryRaw, force) }

// ProcessedFiles lists the processed images.
func (s *Session) ProcessedFiles(force bool) []string {
	return s.fileList(classify.CategoryProcessed, force)
}

// MaskFiles lists the mask images.
func (s *Session) MaskFiles(force bool) []string { return s.fileList(classify.CategoryMasks, force) }
