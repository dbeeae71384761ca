package session

import (
	"testing"
	"time"

	"github.com/0x6d61/pshelper/internal/status"
)

func TestCompareDates(t *testing.T) {
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"both missing", time.Time{}, time.Time{}, 0},
		{"missing sorts last", time.Time{}, early, 1},
		{"dated sorts first", early, time.Time{}, -1},
		{"earlier first", early, late, -1},
		{"later second", late, early, 1},
		{"same", early, early, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareDates(tt.a, tt.b); got != tt.want {
				t.Errorf("compareDates() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSnapshotCompare(t *testing.T) {
	a := Snapshot{
		Root: "/c/a", ID: 2, Name: "Zeta", Status: status.AlignmentDone, ProcessedCount: 10,
		Metrics: status.Metrics{
			HasDescriptor: true, ChunkImages: 10, ChunkCameras: 10, AlignmentLevel: "High",
			DenseCloudLevel: "Low", DenseCloudImagesUsed: 9,
			HasMesh: true, MeshFaces: 1000,
			TextureCount: 1, TextureWidth: 1024, TextureHeight: 1024,
		},
	}
	b := Snapshot{
		Root: "/c/b", ID: 1, Name: "Alpha", Status: status.ModelGenDone, ProcessedCount: 3,
		Metrics: status.Metrics{
			HasDescriptor: true, ChunkImages: 10, ChunkCameras: 10, AlignmentLevel: "Low",
			DenseCloudLevel: "Low", DenseCloudImagesUsed: 5,
			HasMesh: true, MeshFaces: 50000,
		},
	}

	tests := []struct {
		field status.Field
		sign  int
	}{
		{status.FieldFolder, -1},
		{status.FieldID, 1},
		{status.FieldName, 1},
		{status.FieldCaptureDate, 0},
		{status.FieldImageCount, 1},
		{status.FieldStatus, -1},
		{status.FieldAlignLevel, -1},
		{status.FieldModelLevel, -1},
		{status.FieldTextureLevel, -1},
	}
	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			got := a.Compare(b, tt.field)
			if sign(got) != tt.sign {
				t.Errorf("Compare(%v) = %d, want sign %d", tt.field, got, tt.sign)
			}
		})
	}

	if got, want := sign(a.Compare(b, status.FieldDenseCloudLevel)),
		sign(status.DenseCloudScore(a.Metrics)-status.DenseCloudScore(b.Metrics)); got != want {
		t.Errorf("Compare(dense cloud) sign = %d, want %d", got, want)
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

func TestSortSessions(t *testing.T) {
	reg := NewRegistry()
	var sessions []*Session
	for _, name := range []string{"3 Charlie", "1 Alpha", "2 Bravo"} {
		root := newDir(t, name)
		touch(t, root, "a.cr2")
		s := New(root, reg, quiet())
		if err := s.ConvertDefault(); err != nil {
			t.Fatal(err)
		}
		sessions = append(sessions, s)
	}

	Sort(sessions, status.FieldID)
	for i, s := range sessions {
		if s.ID() != uint64(i+1) {
			t.Errorf("sessions[%d].ID() = %d, want %d", i, s.ID(), i+1)
		}
	}

	sessions[0].SetCapturedAt(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC))
	sessions[2].SetCapturedAt(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC))
	Sort(sessions, status.FieldCaptureDate)
	if sessions[0].ID() != 3 || sessions[1].ID() != 1 || sessions[2].ID() != 2 {
		t.Errorf("date order = %d,%d,%d; want 3,1,2", sessions[0].ID(), sessions[1].ID(), sessions[2].ID())
	}

	if c := sessions[0].Compare(sessions[1], status.FieldName); c <= 0 {
		t.Errorf("Compare(Charlie, Alpha, name) = %d, want > 0", c)
	}
}
