package status

import "fmt"

// NotAvailable is the description of a phase that has no data.
const NotAvailable = "N/A"

// Metrics are the cached values the status engine works from.
type Metrics struct {
	HasDescriptor bool

	ChunkImages  int
	ChunkCameras int

	AlignmentLevel        string
	AlignmentFeatureLimit int
	AlignmentTieLimit     int

	DenseCloudLevel      string
	DenseCloudImagesUsed int

	HasMesh   bool
	MeshFaces int64
	MeshVerts int64

	TextureCount  int
	TextureWidth  int
	TextureHeight int

	RawCount       int
	ProcessedCount int
}

// HasAlignment reports whether the descriptor carries image alignment data.
func (m Metrics) HasAlignment() bool {
	return m.HasDescriptor && m.AlignmentLevel != ""
}

// HasDenseCloud reports whether the descriptor carries dense cloud data.
func (m Metrics) HasDenseCloud() bool {
	return m.HasDescriptor && m.DenseCloudLevel != ""
}

// HasModel reports whether a mesh was generated.
func (m Metrics) HasModel() bool {
	return m.HasDescriptor && m.HasMesh
}

// HasTexture reports whether textures were generated.
func (m Metrics) HasTexture() bool {
	return m.HasDescriptor && m.TextureCount > 0
}

// FaceCount returns the mesh face count, or -1 without a mesh.
func (m Metrics) FaceCount() int64 {
	if !m.HasModel() {
		return -1
	}
	return m.MeshFaces
}

// VertexCount returns the mesh vertex count, or -1 without a mesh.
func (m Metrics) VertexCount() int64 {
	if !m.HasModel() {
		return -1
	}
	return m.MeshVerts
}

// AlignScore grades image alignment from 0 (best) to 5 (no data) using the
// share of chunk cameras that ended up aligned.
func AlignScore(m Metrics) int {
	if !m.HasDescriptor || m.ChunkImages <= 0 || m.ChunkCameras <= 0 {
		return 5
	}
	ratio := float64(m.ChunkImages) / float64(m.ChunkCameras)
	switch {
	case ratio >= .95:
		return 0
	case ratio >= .6667:
		return 1
	case ratio >= .3333:
		return 2
	case ratio >= .10:
		return 3
	}
	return 4
}

// DenseCloudScore grades the dense cloud from 0 to 5. The comparisons below
// .95 run in the opposite direction to AlignScore and must stay that way.
func DenseCloudScore(m Metrics) int {
	if !m.HasDescriptor || m.ChunkCameras <= 0 || m.DenseCloudImagesUsed <= 0 {
		return 5
	}
	ratio := float64(m.DenseCloudImagesUsed) / float64(m.ChunkCameras)
	switch {
	case ratio >= .950:
		return 0
	case ratio < .6667:
		return 1
	case ratio < .3333:
		return 2
	case ratio < .100:
		return 3
	}
	return 4
}

// ModelScore grades the mesh resolution by face count.
func ModelScore(m Metrics) int {
	switch {
	case !m.HasModel() || m.MeshFaces == 0:
		return 5
	case m.MeshFaces < 5000:
		return 4
	case m.MeshFaces < 10000:
		return 3
	case m.MeshFaces < 50000:
		return 2
	case m.MeshFaces < 1000000:
		return 1
	}
	return 0
}

// TextureScore grades the texture resolution by its smaller side.
func TextureScore(m Metrics) int {
	if !m.HasDescriptor || m.TextureWidth == 0 || m.TextureHeight == 0 {
		return 5
	}
	side := min(m.TextureWidth, m.TextureHeight)
	switch {
	case side < 1024:
		return 4
	case side < 2048:
		return 3
	case side < 3072:
		return 2
	case side < 4096:
		return 1
	}
	return 0
}

// DescribeAlign renders the alignment phase, e.g. "High (42 - 40k/4k)".
func DescribeAlign(m Metrics) string {
	if !m.HasAlignment() {
		return NotAvailable
	}
	return fmt.Sprintf("%s (%d - %dk/%dk)", m.AlignmentLevel, m.ChunkImages,
		m.AlignmentFeatureLimit/1000, m.AlignmentTieLimit/1000)
}

// DescribeDenseCloud renders the dense cloud phase, e.g. "Medium (40)".
func DescribeDenseCloud(m Metrics) string {
	if !m.HasDenseCloud() {
		return NotAvailable
	}
	return fmt.Sprintf("%s (%d)", m.DenseCloudLevel, m.DenseCloudImagesUsed)
}

// DescribeModel renders the mesh size, e.g. "1.2M faces".
func DescribeModel(m Metrics) string {
	if !m.HasModel() {
		return NotAvailable
	}
	if m.MeshFaces >= 1000000 {
		return fmt.Sprintf("%.1fM faces", float64(m.MeshFaces)/1000000.0)
	}
	return fmt.Sprintf("%.1fK faces", float64(m.MeshFaces)/1000.0)
}

// DescribeTexture renders the texture set, e.g. "2 @ (4096 x 4096)".
func DescribeTexture(m Metrics) string {
	if !m.HasTexture() {
		return NotAvailable
	}
	return fmt.Sprintf("%d @ (%d x %d)", m.TextureCount, m.TextureWidth, m.TextureHeight)
}
