package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SidecarSuffix is appended to the descriptor path to locate its summary.
const SidecarSuffix = ".summary.yaml"

// Sidecar reads summaries exported next to each descriptor by the
// reconstruction tool's export script, e.g. "statue.psz.summary.yaml".
type Sidecar struct{}

// SidecarPath returns where the summary for descriptorPath is expected.
func SidecarPath(descriptorPath string) string {
	return descriptorPath + SidecarSuffix
}

// Summarize loads and validates the sidecar summary of path.
func (Sidecar) Summarize(path string) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var sum Summary
	if err := yaml.Unmarshal(data, &sum); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := sum.validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &sum, nil
}

// WriteSidecar stores sum as the sidecar summary of descriptorPath.
func WriteSidecar(descriptorPath string, sum *Summary) error {
	data, err := yaml.Marshal(sum)
	if err != nil {
		return fmt.Errorf("descriptor: marshal summary: %w", err)
	}
	if err := os.WriteFile(SidecarPath(descriptorPath), data, 0o644); err != nil {
		return fmt.Errorf("descriptor: write summary: %w", err)
	}
	return nil
}

func (s *Summary) validate() error {
	if s.ChunkCount < 1 {
		return fmt.Errorf("chunk_count must be at least 1, got %d", s.ChunkCount)
	}
	if s.ActiveChunkIndex < 0 || s.ActiveChunkIndex >= s.ChunkCount {
		return fmt.Errorf("active_chunk_index %d out of range [0,%d)", s.ActiveChunkIndex, s.ChunkCount)
	}
	c := s.ActiveChunk
	if c.ImageCount < 0 || c.CameraCount < 0 {
		return fmt.Errorf("negative image or camera count")
	}
	if c.Mesh != nil && (c.Mesh.FaceCount < 0 || c.Mesh.VertexCount < 0) {
		return fmt.Errorf("negative mesh size")
	}
	if c.Texture != nil && (c.Texture.Count < 0 || c.Texture.Width < 0 || c.Texture.Height < 0) {
		return fmt.Errorf("negative texture size")
	}
	return nil
}
