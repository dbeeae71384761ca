// Package status infers the pipeline stage of a photogrammetry session from
// its cached metrics and scores how complete each reconstruction phase is.
package status

import (
	"fmt"
	"strings"
)

// Status is the pipeline stage of a session. Each automatic stage implies the
// earlier ones are complete. Values above TextureGenDone are assigned by hand.
type Status int

const (
	Unknown Status = iota
	Unprocessed
	RawProcessingDone
	AlignmentDone
	PointCloudDone
	ModelGenDone
	TextureGenDone
	ModelEditing
	ModelEditingDone
	FinalReview
	FinalApproval
)

type statusInfo struct {
	status      Status
	name        string
	shortName   string
	description string
}

// statusTable is ordered by ordinal; lookups index into it directly.
var statusTable = [...]statusInfo{
	{Unknown, "Unknown", "?", "Status unknown or inconsistent"},
	{Unprocessed, "Unprocessed", "unproc", "Raw images not yet processed"},
	{RawProcessingDone, "RawProcessingDone", "raw", "Raw images processed"},
	{AlignmentDone, "AlignmentDone", "align", "Images aligned"},
	{PointCloudDone, "PointCloudDone", "cloud", "Dense point cloud built"},
	{ModelGenDone, "ModelGenDone", "model", "Mesh generated"},
	{TextureGenDone, "TextureGenDone", "texture", "Textures generated"},
	{ModelEditing, "ModelEditing", "editing", "Model editing in progress"},
	{ModelEditingDone, "ModelEditingDone", "edited", "Model editing finished"},
	{FinalReview, "FinalReview", "review", "Waiting for final review"},
	{FinalApproval, "FinalApproval", "approved", "Final approval given"},
}

// All returns every status in ordinal order.
func All() []Status {
	out := make([]Status, len(statusTable))
	for i, info := range statusTable {
		out[i] = info.status
	}
	return out
}

func (s Status) info() (statusInfo, bool) {
	if s < 0 || int(s) >= len(statusTable) {
		return statusInfo{}, false
	}
	return statusTable[s], true
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := s.info()
	return ok
}

// String returns the identifier name of the status.
func (s Status) String() string {
	if info, ok := s.info(); ok {
		return info.name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ShortName returns a compact label for tables.
func (s Status) ShortName() string {
	if info, ok := s.info(); ok {
		return info.shortName
	}
	return ""
}

// Description returns a human readable description.
func (s Status) Description() string {
	if info, ok := s.info(); ok {
		return info.description
	}
	return ""
}

// IsCustom reports whether s lies in the user-assigned range.
func (s Status) IsCustom() bool {
	return s > TextureGenDone && s <= FinalApproval
}

// Parse resolves a status from its name or short name (case-insensitive).
func Parse(name string) (Status, error) {
	name = strings.TrimSpace(name)
	for _, info := range statusTable {
		if strings.EqualFold(name, info.name) || strings.EqualFold(name, info.shortName) {
			return info.status, nil
		}
	}
	return Unknown, fmt.Errorf("status: unknown status %q", name)
}

// Custom maps a user offset onto the custom range. It returns false when
// TextureGenDone+offset is not in (TextureGenDone, FinalApproval]; the caller
// is then expected to fall back to automatic derivation.
func Custom(offset int) (Status, bool) {
	s := TextureGenDone + Status(offset)
	if s > TextureGenDone && s <= FinalApproval {
		return s, true
	}
	return Unknown, false
}

// Auto derives the status from m. A current status beyond TextureGenDone is
// kept unless overwriteCustom is set.
func Auto(current Status, m Metrics, overwriteCustom bool) Status {
	if current > TextureGenDone && !overwriteCustom {
		return current
	}

	var s Status
	switch {
	case !m.HasAlignment():
		s = RawProcessingDone
	case !m.HasDenseCloud():
		s = AlignmentDone
	case !m.HasModel():
		s = PointCloudDone
	case !m.HasTexture():
		s = ModelGenDone
	default:
		s = TextureGenDone
	}

	// Raw images present but nothing processed yet.
	if m.ProcessedCount == 0 && m.RawCount != 0 {
		if m.HasDescriptor {
			// A descriptor without processed images is inconsistent.
			return Unknown
		}
		return Unprocessed
	}
	return s
}
