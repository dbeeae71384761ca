package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

func TestDefaultScanConfig(t *testing.T) {
	cfg := DefaultScanConfig()
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if !cfg.Resync {
		t.Error("Resync = false, want true")
	}
	if cfg.AutoApprove {
		t.Error("AutoApprove = true, want false")
	}
	if cfg.SortBy != status.FieldID {
		t.Errorf("SortBy = %v, want %v", cfg.SortBy, status.FieldID)
	}
	if cfg.RecordName != fingerprint.DefaultFileName {
		t.Errorf("RecordName = %q, want %q", cfg.RecordName, fingerprint.DefaultFileName)
	}
}

func TestScanResultRecord(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()
	r := &ScanResult{
		ID:              id,
		Root:            "/collection",
		Sessions:        make([]*session.Session, 3),
		PendingApproval: make([]*session.Session, 1),
		Converted:       2,
		Resynced:        1,
		StartTime:       start,
		EndTime:         start.Add(time.Second),
		Errors:          []error{nil, nil},
	}

	rec := r.Record()
	if rec.ID != id.String() {
		t.Errorf("ID = %q, want %q", rec.ID, id.String())
	}
	if rec.Sessions != 3 || rec.Pending != 1 || rec.Converted != 2 || rec.Resynced != 1 || rec.Errors != 2 {
		t.Errorf("Record() = %+v", rec)
	}
	if !rec.StartedAt.Equal(start) || !rec.FinishedAt.Equal(start.Add(time.Second)) {
		t.Errorf("times = %v..%v", rec.StartedAt, rec.FinishedAt)
	}
}
