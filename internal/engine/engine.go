// Package engine walks a collection of photogrammetry sessions, brings their
// records up to date and feeds the results to the catalog.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/0x6d61/pshelper/internal/catalog"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// ScanConfig holds configuration for a scan.
type ScanConfig struct {
	Workers         int          // Number of concurrent workers (default 4)
	MaxOpsPerSecond float64      // Sessions handled per second, 0 = unlimited
	AutoApprove     bool         // Convert sessions that have no record yet
	Resync          bool         // Re-derive records that are out of sync
	SortBy          status.Field // Order of ScanResult.Sessions
	RecordName      string       // Record file name inside each session
}

// DefaultScanConfig returns sensible defaults.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		Workers:    4,
		Resync:     true,
		SortBy:     status.FieldID,
		RecordName: fingerprint.DefaultFileName,
	}
}

// Indexer receives the snapshots of a scan.
type Indexer interface {
	Upsert(ctx context.Context, snap session.Snapshot) error
	Delete(ctx context.Context, root string) error
	Prune(ctx context.Context, collection string, keep []string) (int64, error)
	RecordScan(ctx context.Context, rec *catalog.ScanRecord) error
}

// ScanResult holds the complete result of a scan.
type ScanResult struct {
	ID              uuid.UUID
	Root            string
	Sessions        []*session.Session // sorted by ScanConfig.SortBy
	Snapshots       []session.Snapshot // same order as Sessions
	PendingApproval []*session.Session // no record and not converted
	Converted       int
	Resynced        int
	Ignored         int
	StartTime       time.Time
	EndTime         time.Time
	Errors          []error
}

// Record converts the result into a catalog scan record.
func (r *ScanResult) Record() *catalog.ScanRecord {
	return &catalog.ScanRecord{
		ID:         r.ID.String(),
		Root:       r.Root,
		StartedAt:  r.StartTime,
		FinishedAt: r.EndTime,
		Sessions:   len(r.Sessions),
		Pending:    len(r.PendingApproval),
		Converted:  r.Converted,
		Resynced:   r.Resynced,
		Errors:     len(r.Errors),
	}
}
