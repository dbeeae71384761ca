package status

import (
	"fmt"
	"strings"
)

// Field selects the key sessions are compared and sorted by.
type Field int

const (
	FieldFolder Field = iota
	FieldID
	FieldName
	FieldCaptureDate
	FieldImageCount
	FieldStatus
	FieldAlignLevel
	FieldDenseCloudLevel
	FieldModelLevel
	FieldTextureLevel
)

type fieldInfo struct {
	field       Field
	name        string
	shortName   string
	description string
}

var fieldTable = [...]fieldInfo{
	{FieldFolder, "Folder", "folder", "Session folder name"},
	{FieldID, "ID", "id", "Session ID"},
	{FieldName, "Name", "name", "Session name"},
	{FieldCaptureDate, "CaptureDate", "date", "Date the photos were captured"},
	{FieldImageCount, "ImageCount", "images", "Number of processed images"},
	{FieldStatus, "Status", "status", "Pipeline status"},
	{FieldAlignLevel, "AlignLevel", "align", "Image alignment phase"},
	{FieldDenseCloudLevel, "DenseCloudLevel", "cloud", "Dense cloud phase"},
	{FieldModelLevel, "ModelLevel", "model", "Model generation phase"},
	{FieldTextureLevel, "TextureLevel", "texture", "Texture generation phase"},
}

// Fields returns every sort field in declaration order.
func Fields() []Field {
	out := make([]Field, len(fieldTable))
	for i, info := range fieldTable {
		out[i] = info.field
	}
	return out
}

func (f Field) info() (fieldInfo, bool) {
	if f < 0 || int(f) >= len(fieldTable) {
		return fieldInfo{}, false
	}
	return fieldTable[f], true
}

func (f Field) String() string {
	if info, ok := f.info(); ok {
		return info.name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ShortName returns the flag-friendly name of the field.
func (f Field) ShortName() string {
	if info, ok := f.info(); ok {
		return info.shortName
	}
	return ""
}

// Description returns the column heading for the field.
func (f Field) Description() string {
	if info, ok := f.info(); ok {
		return info.description
	}
	return ""
}

// ParseField resolves a field from its name or short name (case-insensitive).
func ParseField(name string) (Field, error) {
	name = strings.TrimSpace(name)
	for _, info := range fieldTable {
		if strings.EqualFold(name, info.name) || strings.EqualFold(name, info.shortName) {
			return info.field, nil
		}
	}
	return FieldID, fmt.Errorf("status: unknown sort field %q", name)
}
