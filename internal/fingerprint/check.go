package fingerprint

import (
	"os"
	"path/filepath"
)

// Stamp returns the last-modified time of path in epoch seconds, or 0 when
// the path does not exist.
func Stamp(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// Live builds the fingerprints of the session as it is on disk now.
// projectPath may be empty when no descriptor is linked.
func Live(projectPath, rawDir, processedDir, masksDir string) Fingerprints {
	fp := Fingerprints{
		Raw:       Stamp(rawDir),
		Processed: Stamp(processedDir),
		Masks:     Stamp(masksDir),
	}
	if projectPath != "" {
		fp.ProjectFile = filepath.Base(projectPath)
		fp.Project = Stamp(projectPath)
	}
	return fp
}

// Mismatch names the first fingerprint that differs between the record and
// the filesystem.
type Mismatch int

const (
	MismatchNone Mismatch = iota
	MismatchProjectName
	MismatchProjectTime
	MismatchRaw
	MismatchProcessed
	MismatchMasks
)

var mismatchNames = map[Mismatch]string{
	MismatchNone:        "none",
	MismatchProjectName: "project file name",
	MismatchProjectTime: "project file timestamp",
	MismatchRaw:         "raw folder timestamp",
	MismatchProcessed:   "processed folder timestamp",
	MismatchMasks:       "masks folder timestamp",
}

func (m Mismatch) String() string {
	if name, ok := mismatchNames[m]; ok {
		return name
	}
	return "unknown"
}

// Check compares saved against live in a fixed order and returns the first
// difference. MismatchNone means the record is synchronized.
func Check(saved, live Fingerprints) Mismatch {
	switch {
	case saved.ProjectFile != live.ProjectFile:
		return MismatchProjectName
	case saved.Project != live.Project:
		return MismatchProjectTime
	case saved.Raw != live.Raw:
		return MismatchRaw
	case saved.Processed != live.Processed:
		return MismatchProcessed
	case saved.Masks != live.Masks:
		return MismatchMasks
	}
	return MismatchNone
}
