package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func sampleSummary() *Summary {
	return &Summary{
		ChunkCount:       2,
		ActiveChunkIndex: 1,
		ActiveChunk: Chunk{
			ImageCount:  48,
			CameraCount: 50,
			Alignment:   Alignment{Level: "High", FeatureLimit: 40000, TiePointLimit: 4000},
			DenseCloud:  DenseCloud{Level: "Medium", ImagesUsed: 48},
			Mesh:        &Mesh{FaceCount: 250000, VertexCount: 125000},
			Texture:     &Texture{Count: 1, Width: 4096, Height: 4096},
		},
	}
}

func TestParseErrorIs(t *testing.T) {
	var err error = &ParseError{Path: "x.psz", Err: os.ErrNotExist}
	if !errors.Is(err, ErrParse) {
		t.Error("errors.Is(ParseError, ErrParse) = false")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("ParseError does not unwrap to the cause")
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Summarize("a.psz")
	if !errors.Is(err, ErrParse) {
		t.Errorf("Unavailable.Summarize() error = %v, want ErrParse", err)
	}
}

func TestStatic(t *testing.T) {
	s := Static{"a.psz": sampleSummary()}
	got, err := s.Summarize("a.psz")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	got.ChunkCount = 99
	again, _ := s.Summarize("a.psz")
	if again.ChunkCount != 2 {
		t.Error("Static returned a shared summary")
	}
	if _, err := s.Summarize("b.psz"); !errors.Is(err, ErrParse) {
		t.Errorf("Summarize(unknown) error = %v, want ErrParse", err)
	}
}

func TestSummarizerFunc(t *testing.T) {
	called := ""
	f := SummarizerFunc(func(path string) (*Summary, error) {
		called = path
		return sampleSummary(), nil
	})
	if _, err := f.Summarize("p.psx"); err != nil || called != "p.psx" {
		t.Errorf("SummarizerFunc not invoked correctly: %q, %v", called, err)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statue.psz")
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteSidecar(path, sampleSummary()); err != nil {
		t.Fatalf("WriteSidecar() error: %v", err)
	}

	got, err := Sidecar{}.Summarize(path)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if got.ActiveChunk.Alignment.Level != "High" || got.ActiveChunk.Mesh == nil ||
		got.ActiveChunk.Mesh.FaceCount != 250000 || got.ActiveChunk.Texture.Width != 4096 {
		t.Errorf("unexpected summary: %+v", got)
	}
}

func TestSidecarFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statue.psz")

	if _, err := (Sidecar{}).Summarize(path); !errors.Is(err, ErrParse) {
		t.Errorf("missing descriptor: error = %v, want ErrParse", err)
	}

	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (Sidecar{}).Summarize(path); !errors.Is(err, ErrParse) {
		t.Errorf("missing sidecar: error = %v, want ErrParse", err)
	}

	if err := os.WriteFile(SidecarPath(path), []byte("chunk_count: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (Sidecar{}).Summarize(path); !errors.Is(err, ErrParse) {
		t.Errorf("malformed sidecar: error = %v, want ErrParse", err)
	}

	if err := os.WriteFile(SidecarPath(path), []byte("chunk_count: 1\nactive_chunk_index: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (Sidecar{}).Summarize(path); !errors.Is(err, ErrParse) {
		t.Errorf("invalid sidecar: error = %v, want ErrParse", err)
	}
}
