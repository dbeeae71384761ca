// Package fingerprint persists the per-session metadata record and detects
// when it has drifted from the files on disk.
package fingerprint

import (
	"time"

	"github.com/0x6d61/pshelper/internal/classify"
	"github.com/0x6d61/pshelper/internal/exposure"
)

// DefaultFileName is the record file kept in every session root.
const DefaultFileName = "psh_meta.ini"

// DateTimeLayout is how capture dates are written to the record.
const DateTimeLayout = "Mon Jan 2 15:04:05 2006"

// General holds identity and status.
type General struct {
	ID                uint64
	Name              string
	Description       string
	Notes             []string
	CapturedAt        time.Time // zero when unknown
	Status            int
	ExplicitlyIgnored bool
	IsInitialized     bool
}

// Images holds the cached image counts and category folders relative to the
// session root. A count of -1 means it was never computed.
type Images struct {
	RawCount        int
	ProcessedCount  int
	MaskCount       int
	RawFolder       string
	ProcessedFolder string
	MasksFolder     string
}

// ChunkData caches the descriptor summary of the active chunk.
type ChunkData struct {
	ChunkCount            int
	ActiveChunkIndex      int
	ChunkImages           int
	ChunkCameras          int
	AlignmentLevel        string
	AlignmentFeatureLimit int
	AlignmentTieLimit     int
	DenseCloudLevel       string
	DenseCloudImagesUsed  int
	HasMesh               bool
	MeshFaces             int64
	MeshVerts             int64
	TextureCount          int
	TextureWidth          int
	TextureHeight         int
}

// Fingerprints are the last-modified epoch seconds of the descriptor and the
// three image folders, plus the descriptor's file name. Missing paths stamp 0.
type Fingerprints struct {
	ProjectFile string
	Project     int64
	Raw         int64
	Processed   int64
	Masks       int64
}

// Record is the full persisted state of a session.
type Record struct {
	General General
	Images  Images
	// Chunk is nil when no descriptor is linked.
	Chunk *ChunkData
	Sync  Fingerprints
	// Exposure is nil when the record carries no exposure group; saving a
	// record with nil Exposure leaves an existing group untouched.
	Exposure *exposure.Settings
}

// NewRecord returns a record filled with the built-in defaults.
func NewRecord() *Record {
	return &Record{
		Images: Images{
			RawCount:       -1,
			ProcessedCount: -1,
			MaskCount:      -1,

			RawFolder:       classify.RawFolderName,
			ProcessedFolder: classify.ProcessedFolderName,
			MasksFolder:     classify.MasksFolderName,
		},
	}
}
