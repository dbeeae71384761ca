package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/0x6d61/pshelper/internal/exposure"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// newTestListing creates a realistic listing for testing.
func newTestListing() *Listing {
	start := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	end := start.Add(12*time.Second + 300*time.Millisecond)

	textured := session.Snapshot{
		Root:           "/data/12 Statue Of Liberty",
		ID:             12,
		Name:           "Statue Of Liberty",
		Description:    "north face",
		Notes:          []string{"windy"},
		CapturedAt:     time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		Status:         status.TextureGenDone,
		Initialized:    true,
		Synchronized:   true,
		ProjectFile:    "liberty.psz",
		RawCount:       40,
		ProcessedCount: 40,
		MaskCount:      3,
		ChunkCount:     1,
		Metrics: status.Metrics{
			HasDescriptor:         true,
			ChunkImages:           40,
			ChunkCameras:          40,
			AlignmentLevel:        "High",
			AlignmentFeatureLimit: 40000,
			AlignmentTieLimit:     4000,
			DenseCloudLevel:       "Medium",
			DenseCloudImagesUsed:  40,
			HasMesh:               true,
			MeshFaces:             2_000_000,
			MeshVerts:             1_000_000,
			TextureCount:          1,
			TextureWidth:          8192,
			TextureHeight:         8192,
			RawCount:              40,
			ProcessedCount:        40,
		},
		Exposure: exposure.Default,
	}
	stale := session.Snapshot{
		Root:         "/data/3 Bridge",
		ID:           3,
		Name:         "Bridge",
		Status:       status.Unprocessed,
		Initialized:  true,
		Synchronized: false,
		Mismatch:     "raw folder timestamp",
		RawCount:     7,
		Metrics:      status.Metrics{RawCount: 7},
		Exposure: exposure.Settings{
			WBMode:      exposure.WBCustom,
			WBCustom:    [4]float64{2, 1, 1.5, 1},
			BrightMode:  exposure.BrightScaled,
			BrightScale: 1.25,
		},
	}
	fresh := session.Snapshot{
		Root:     "/data/new shoot",
		ID:       13,
		Exposure: exposure.Default,
	}

	return &Listing{
		Collection:      "/data",
		Sessions:        []session.Snapshot{stale, textured, fresh},
		PendingApproval: []string{"/data/new shoot"},
		Scan: &ScanInfo{
			ID:        "scan-1",
			StartTime: start,
			EndTime:   end,
			Converted: 1,
			Resynced:  2,
		},
	}
}

func TestTextReporter_Format(t *testing.T) {
	r := &TextReporter{}
	if got := r.Format(); got != "text" {
		t.Errorf("Format() = %q, want %q", got, "text")
	}
}

func TestTextReporter_Generate_Table(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newTestListing(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"pshelper",
		"Collection: /data",
		"Duration:   12.3s",
		"Converted:  1   Resynced: 2",
		"Statue Of Liberty",
		"texture",
		"High (40 - 40k/4k)",
		"Medium (40)",
		"2.0M faces",
		"1 @ (8192 x 8192)",
		"stale (raw folder timestamp)",
		"new shoot",
		"Awaiting approval:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got:\n%s", want, output)
		}
	}

	// Details are only shown when verbose.
	if strings.Contains(output, "north face") {
		t.Error("non-verbose output should not contain session details")
	}
}

func TestTextReporter_Generate_Verbose(t *testing.T) {
	r := &TextReporter{Verbose: 1}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newTestListing(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"[12] Statue Of Liberty",
		"Description: north face",
		"Captured:    2025-06-01 08:30:00",
		"Project:     liberty.psz",
		"Note 1:      windy",
		"white balance camera, brightness auto-histogram",
		"white balance custom 2/1/1.5/1, brightness scaled x1.25",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestTextReporter_Generate_Empty(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), &Listing{}, &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found") {
		t.Error("output should indicate no sessions found")
	}
}

func TestTextReporter_Generate_Summary(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newTestListing(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Summary: 3 session(s), 0 ignored, 1 out of sync") {
		t.Errorf("output should contain the session summary, got:\n%s", output)
	}
	if !strings.Contains(output, "Without descriptor: 2   alignment: 2   dense cloud: 2   model: 2") {
		t.Errorf("output should contain the phase counters, got:\n%s", output)
	}
}

func TestTextReporter_Generate_Errors(t *testing.T) {
	r := &TextReporter{}
	listing := newTestListing()
	listing.Errors = []error{errors.New("engine: sync /data/3 Bridge: disk full")}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), listing, &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Error("output should contain the error message")
	}
}

func TestTextReporter_Generate_CancelledContext(t *testing.T) {
	r := &TextReporter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := r.Generate(ctx, newTestListing(), &buf); err == nil {
		t.Error("Generate() with cancelled context should return error")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written after cancellation")
	}
}
