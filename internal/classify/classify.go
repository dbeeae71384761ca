// Package classify sorts the loose files of a session folder into the raw,
// processed and mask category sub-folders.
package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Default category sub-folder names.
const (
	RawFolderName       = "Raw"
	ProcessedFolderName = "Processed"
	MasksFolderName     = "Masks"
)

// ProjectPatterns match project descriptor files.
var ProjectPatterns = []string{"*.psz", "*.psx"}

// ProcessedPatterns match processed (developed) images.
var ProcessedPatterns = []string{
	"*.jpg", "*.jpeg",
	"*.tif", "*.tiff",
	"*.pgm", "*.ppm",
	"*.png",
	"*.bmp",
	"*.exr",
}

// MaskPatterns match mask images. They overlap ProcessedPatterns, so masks
// are always pulled out before processed images.
var MaskPatterns = []string{
	"*_mask.jpg", "*_mask.jpeg",
	"*_mask.tif", "*_mask.tiff",
	"*_mask.pgm", "*_mask.ppm",
	"*_mask.png",
	"*_mask.bmp",
	"*_mask.exr",
}

// RawPatterns match camera raw formats.
var RawPatterns = []string{
	"*.3fr",
	"*.ari", "*.arw",
	"*.bay",
	"*.crw", "*.cr2", "*.cr3",
	"*.cap",
	"*.data", "*.dcs", "*.dcr", "*.dng",
	"*.drf",
	"*.eip", "*.erf",
	"*.fff",
	"*.gpr",
	"*.iiq",
	"*.k25", "*.kdc",
	"*.mdc", "*.mef", "*.mos", "*.mrw",
	"*.nef", "*.nrw",
	"*.obm", "*.orf",
	"*.pef", "*.ptx", "*.pxn",
	"*.r3d", "*.raf", "*.raw", "*.rwl", "*.rw2", "*.rwz",
	"*.sr2", "*.srf", "*.srw",
	"*.x3f",
}

// Category identifies one of the image sub-folders.
type Category int

const (
	CategoryRaw Category = iota
	CategoryProcessed
	CategoryMasks
)

// String returns the category name.
func (c Category) String() string {
	names := [...]string{"raw", "processed", "masks"}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// Patterns returns the filename patterns for c.
func (c Category) Patterns() []string {
	switch c {
	case CategoryRaw:
		return RawPatterns
	case CategoryProcessed:
		return ProcessedPatterns
	case CategoryMasks:
		return MaskPatterns
	}
	return nil
}

// excludes returns patterns whose matches must never be counted as c.
func (c Category) excludes() []string {
	if c == CategoryProcessed {
		return MaskPatterns
	}
	return nil
}

// Layout holds the absolute category folders of a session.
type Layout struct {
	Raw       string
	Processed string
	Masks     string
}

// Dir returns the folder for c.
func (l Layout) Dir(c Category) string {
	switch c {
	case CategoryRaw:
		return l.Raw
	case CategoryProcessed:
		return l.Processed
	case CategoryMasks:
		return l.Masks
	}
	return ""
}

// Classify returns the default category folders under root.
func Classify(root string) Layout {
	return Layout{
		Raw:       filepath.Join(root, RawFolderName),
		Processed: filepath.Join(root, ProcessedFolderName),
		Masks:     filepath.Join(root, MasksFolderName),
	}
}

// IOError reports a failed directory or file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("classify: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Match reports whether name matches any of patterns, ignoring case.
func Match(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := filepath.Match(strings.ToLower(p), lower); err == nil && ok {
			return true
		}
	}
	return false
}

// MatchCategory reports whether name belongs to category c.
func MatchCategory(name string, c Category) bool {
	if Match(name, c.excludes()) {
		return false
	}
	return Match(name, c.Patterns())
}

// List returns the regular files directly under dir that match patterns,
// sorted by name. Symlinks and directories are skipped. A missing directory
// yields an empty list.
func List(dir string, patterns []string) ([]string, error) {
	return list(dir, patterns, nil)
}

// ListCategory lists the files of category c in dir.
func ListCategory(dir string, c Category) ([]string, error) {
	return list(dir, c.Patterns(), c.excludes())
}

func list(dir string, patterns, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "read dir", Path: dir, Err: err}
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !Match(e.Name(), patterns) || Match(e.Name(), exclude) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FindProjects returns the project descriptor candidates directly under root,
// sorted by name.
func FindProjects(root string) ([]string, error) {
	return List(root, ProjectPatterns)
}

// EnsureAndPopulate creates dir if needed and moves every file directly under
// root that matches patterns into it. Files are renamed, not copied, and an
// existing file of the same name in dir is overwritten. It returns the number
// of files moved. Running it again once everything is sorted moves nothing.
func EnsureAndPopulate(root, dir string, patterns []string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &IOError{Op: "create dir", Path: dir, Err: err}
	}

	files, err := List(root, patterns)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, src := range files {
		dst := filepath.Join(dir, filepath.Base(src))
		if src == dst {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return moved, &IOError{Op: "rename", Path: src, Err: err}
		}
		moved++
	}
	return moved, nil
}

// Populate runs EnsureAndPopulate for every category of l in the required
// order: masks first so they are never absorbed by the raw or processed
// patterns. Failures are collected and the remaining categories still run.
func Populate(root string, l Layout) (map[Category]int, []error) {
	moved := make(map[Category]int, 3)
	var errs []error
	for _, c := range []Category{CategoryMasks, CategoryRaw, CategoryProcessed} {
		n, err := EnsureAndPopulate(root, l.Dir(c), c.Patterns())
		moved[c] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return moved, errs
}
