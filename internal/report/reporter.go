// Package report provides formatters for session listings.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0x6d61/pshelper/internal/engine"
	"github.com/0x6d61/pshelper/internal/session"
)

// Reporter generates output in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Generate writes the formatted listing to w.
	Generate(ctx context.Context, listing *Listing, w io.Writer) error
}

// New creates a reporter by format name ("text" or "json").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

// ScanInfo describes the scan a listing came from.
type ScanInfo struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Converted int
	Resynced  int
	Ignored   int
}

// Listing is what a reporter renders: a set of sessions, optionally with the
// scan that produced them.
type Listing struct {
	Collection      string
	Sessions        []session.Snapshot
	PendingApproval []string // session roots waiting for conversion
	Scan            *ScanInfo
	Errors          []error
}

// FromScan builds a listing from a scan result.
func FromScan(r *engine.ScanResult) *Listing {
	l := &Listing{
		Collection: r.Root,
		Sessions:   r.Snapshots,
		Scan: &ScanInfo{
			ID:        r.ID.String(),
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Converted: r.Converted,
			Resynced:  r.Resynced,
			Ignored:   r.Ignored,
		},
		Errors: r.Errors,
	}
	for _, p := range r.PendingApproval {
		l.PendingApproval = append(l.PendingApproval, p.Root())
	}
	return l
}

// Stats are the collection counters.
type Stats struct {
	Total             int            `json:"total"`
	Ignored           int            `json:"ignored"`
	Unsynchronized    int            `json:"unsynchronized"`
	WithoutDescriptor int            `json:"without_descriptor"`
	WithoutAlignment  int            `json:"without_alignment"`
	WithoutDenseCloud int            `json:"without_dense_cloud"`
	WithoutModel      int            `json:"without_model"`
	ByStatus          map[string]int `json:"by_status"`
}

// Summarize counts the sessions of snaps. Ignored sessions count towards
// Total and Ignored only.
func Summarize(snaps []session.Snapshot) Stats {
	st := Stats{ByStatus: make(map[string]int)}
	seen := make(map[string]struct{}, len(snaps))
	for _, s := range snaps {
		if _, dup := seen[s.Root]; dup {
			continue
		}
		seen[s.Root] = struct{}{}
		st.Total++
		if s.Ignored {
			st.Ignored++
			continue
		}
		if s.Initialized && !s.Synchronized {
			st.Unsynchronized++
		}
		m := s.Metrics
		if !m.HasDescriptor {
			st.WithoutDescriptor++
		}
		if !m.HasAlignment() {
			st.WithoutAlignment++
		}
		if !m.HasDenseCloud() {
			st.WithoutDenseCloud++
		}
		if !m.HasModel() {
			st.WithoutModel++
		}
		st.ByStatus[s.Status.String()]++
	}
	return st
}
