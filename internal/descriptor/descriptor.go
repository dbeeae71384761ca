// Package descriptor exposes the fixed summary this tool needs from a
// project descriptor file. Parsing the descriptor itself is left to the
// external tooling that produced it; implementations of Summarizer only hand
// back the summary.
package descriptor

import (
	"errors"
	"fmt"
)

// ErrParse is matched by every summarization failure.
var ErrParse = errors.New("descriptor: parse failed")

// ParseError reports why a descriptor could not be summarized.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("descriptor: summarize %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Alignment describes the image alignment settings of a chunk.
type Alignment struct {
	Level         string `yaml:"level" json:"level"`
	FeatureLimit  int    `yaml:"feature_limit" json:"feature_limit"`
	TiePointLimit int    `yaml:"tie_point_limit" json:"tie_point_limit"`
}

// DenseCloud describes the dense cloud of a chunk.
type DenseCloud struct {
	Level      string `yaml:"level" json:"level"`
	ImagesUsed int    `yaml:"images_used" json:"images_used"`
}

// Mesh describes a generated model.
type Mesh struct {
	FaceCount   int64 `yaml:"face_count" json:"face_count"`
	VertexCount int64 `yaml:"vertex_count" json:"vertex_count"`
}

// Texture describes the generated texture set.
type Texture struct {
	Count  int `yaml:"count" json:"count"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Chunk summarizes the active chunk of a project.
type Chunk struct {
	ImageCount  int        `yaml:"image_count" json:"image_count"`
	CameraCount int        `yaml:"camera_count" json:"camera_count"`
	Alignment   Alignment  `yaml:"alignment" json:"alignment"`
	DenseCloud  DenseCloud `yaml:"dense_cloud" json:"dense_cloud"`
	Mesh        *Mesh      `yaml:"mesh,omitempty" json:"mesh,omitempty"`
	Texture     *Texture   `yaml:"texture,omitempty" json:"texture,omitempty"`
}

// Summary is the subset of a descriptor the session engine caches.
type Summary struct {
	ChunkCount       int   `yaml:"chunk_count" json:"chunk_count"`
	ActiveChunkIndex int   `yaml:"active_chunk_index" json:"active_chunk_index"`
	ActiveChunk      Chunk `yaml:"active_chunk" json:"active_chunk"`
}

// Summarizer produces the summary of the descriptor at path. Failures are
// returned as *ParseError.
type Summarizer interface {
	Summarize(path string) (*Summary, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(path string) (*Summary, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(path string) (*Summary, error) { return f(path) }

// Unavailable is used when no summarizer is configured: every descriptor is
// reported as unparseable, so sessions fall back to filesystem-only status.
type Unavailable struct{}

// Summarize always fails with a *ParseError.
func (Unavailable) Summarize(path string) (*Summary, error) {
	return nil, &ParseError{Path: path, Err: errors.New("no summarizer configured")}
}

// Static serves summaries from memory, keyed by descriptor path.
type Static map[string]*Summary

// Summarize returns the stored summary for path.
func (s Static) Summarize(path string) (*Summary, error) {
	sum, ok := s[path]
	if !ok {
		return nil, &ParseError{Path: path, Err: errors.New("unknown descriptor")}
	}
	out := *sum
	return &out, nil
}
