package classify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"IMG_0001.CR2", RawPatterns, true},
		{"img_0001.nef", RawPatterns, true},
		{"photo.JPG", ProcessedPatterns, true},
		{"photo1_mask.jpg", MaskPatterns, true},
		{"photo1_MASK.PNG", MaskPatterns, true},
		{"photo1.jpg", MaskPatterns, false},
		{"notes.txt", ProcessedPatterns, false},
		{"project.PSZ", ProjectPatterns, true},
	}
	for _, tt := range tests {
		if got := Match(tt.name, tt.patterns); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatchCategoryExcludesMasksFromProcessed(t *testing.T) {
	if MatchCategory("a_mask.jpg", CategoryProcessed) {
		t.Error("mask file matched processed category")
	}
	if !MatchCategory("a_mask.jpg", CategoryMasks) {
		t.Error("mask file did not match masks category")
	}
	if !MatchCategory("a.jpg", CategoryProcessed) {
		t.Error("jpg did not match processed category")
	}
}

func TestClassify(t *testing.T) {
	l := Classify("/data/12 Statue")
	if l.Raw != filepath.Join("/data/12 Statue", "Raw") {
		t.Errorf("Raw = %q", l.Raw)
	}
	if l.Dir(CategoryProcessed) != filepath.Join("/data/12 Statue", "Processed") {
		t.Errorf("Processed = %q", l.Processed)
	}
	if l.Dir(CategoryMasks) != filepath.Join("/data/12 Statue", "Masks") {
		t.Errorf("Masks = %q", l.Masks)
	}
}

func TestListSkipsDirectoriesAndMissing(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.jpg"))
	touch(t, filepath.Join(root, "a.jpg"))
	if err := os.Mkdir(filepath.Join(root, "dir.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := List(root, ProcessedPatterns)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{filepath.Join(root, "a.jpg"), filepath.Join(root, "b.jpg")}
	if len(files) != len(want) {
		t.Fatalf("List() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, files[i], want[i])
		}
	}

	files, err = List(filepath.Join(root, "missing"), ProcessedPatterns)
	if err != nil || len(files) != 0 {
		t.Errorf("List(missing) = (%v, %v), want empty", files, err)
	}
}

func TestEnsureAndPopulate(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.cr2"))
	touch(t, filepath.Join(root, "b.CR2"))
	touch(t, filepath.Join(root, "c.jpg"))

	raw := filepath.Join(root, RawFolderName)
	moved, err := EnsureAndPopulate(root, raw, RawPatterns)
	if err != nil {
		t.Fatalf("EnsureAndPopulate() error: %v", err)
	}
	if moved != 2 {
		t.Errorf("moved = %d, want 2", moved)
	}
	if !exists(filepath.Join(raw, "a.cr2")) || !exists(filepath.Join(raw, "b.CR2")) {
		t.Error("raw files were not moved")
	}
	if !exists(filepath.Join(root, "c.jpg")) {
		t.Error("non-matching file was moved")
	}

	moved, err = EnsureAndPopulate(root, raw, RawPatterns)
	if err != nil || moved != 0 {
		t.Errorf("second run = (%d, %v), want (0, nil)", moved, err)
	}
}

func TestEnsureAndPopulateCreateFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "Raw")
	touch(t, blocker)

	_, err := EnsureAndPopulate(root, filepath.Join(blocker, "sub"), RawPatterns)
	if err == nil {
		t.Fatal("expected error creating directory under a file")
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("error %v is not *IOError", err)
	}
	if ioErr.Op != "create dir" {
		t.Errorf("Op = %q, want %q", ioErr.Op, "create dir")
	}
}

func TestPopulateMaskPrecedence(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "photo1_mask.jpg"))
	touch(t, filepath.Join(root, "photo1.jpg"))
	touch(t, filepath.Join(root, "photo1.cr2"))

	l := Classify(root)
	moved, errs := Populate(root, l)
	if len(errs) != 0 {
		t.Fatalf("Populate() errors: %v", errs)
	}
	if moved[CategoryMasks] != 1 || moved[CategoryRaw] != 1 || moved[CategoryProcessed] != 1 {
		t.Errorf("moved = %v, want one file per category", moved)
	}
	if !exists(filepath.Join(l.Masks, "photo1_mask.jpg")) {
		t.Error("mask file not in masks folder")
	}
	if exists(filepath.Join(l.Processed, "photo1_mask.jpg")) {
		t.Error("mask file ended up in processed folder")
	}
	if !exists(filepath.Join(l.Processed, "photo1.jpg")) {
		t.Error("processed file not in processed folder")
	}
	if !exists(filepath.Join(l.Raw, "photo1.cr2")) {
		t.Error("raw file not in raw folder")
	}

	files, err := ListCategory(l.Processed, CategoryProcessed)
	if err != nil || len(files) != 1 {
		t.Errorf("ListCategory(processed) = (%v, %v), want one file", files, err)
	}
}

func TestFindProjects(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.psx"))
	touch(t, filepath.Join(root, "a.psz"))
	touch(t, filepath.Join(root, "readme.txt"))

	files, err := FindProjects(root)
	if err != nil {
		t.Fatalf("FindProjects() error: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.psz" {
		t.Errorf("FindProjects() = %v, want [a.psz b.psx]", files)
	}
}
