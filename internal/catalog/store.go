// Package catalog keeps a queryable index of session snapshots and scan runs.
// The per-session records stay the source of truth; the catalog is rebuilt
// by every scan.
package catalog

import (
	"context"
	"time"

	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// Query filters and orders a listing. Zero values mean "no filter".
type Query struct {
	Collection     string         // only sessions directly under this directory
	Status         *status.Status // exact status
	MinStatus      *status.Status // status at or beyond
	Unsynced       bool           // only sessions whose record is stale
	IncludeIgnored bool
	SortBy         status.Field
	Limit          int
}

// ScanRecord summarizes one scan run.
type ScanRecord struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Sessions   int       `json:"sessions"`
	Pending    int       `json:"pending"`
	Converted  int       `json:"converted"`
	Resynced   int       `json:"resynced"`
	Errors     int       `json:"errors"`
}

// Store persists and queries session snapshots.
type Store interface {
	Upsert(ctx context.Context, snap session.Snapshot) error
	Get(ctx context.Context, root string) (*session.Snapshot, error)
	List(ctx context.Context, q Query) ([]session.Snapshot, error)
	Delete(ctx context.Context, root string) error
	Prune(ctx context.Context, collection string, keep []string) (int64, error)
	RecordScan(ctx context.Context, rec *ScanRecord) error
	Scans(ctx context.Context, limit int) ([]ScanRecord, error)
	Close() error
}
