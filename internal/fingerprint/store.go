package fingerprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/0x6d61/pshelper/internal/exposure"
)

var (
	// ErrNotFound is returned by Load when no record file exists.
	ErrNotFound = errors.New("fingerprint: record not found")

	// ErrCorrupt is returned by Load when the record file cannot be parsed.
	ErrCorrupt = errors.New("fingerprint: record corrupt")

	// ErrUnencodable is returned by Save for text the record format cannot
	// hold: a value containing the multiline marker """.
	ErrUnencodable = errors.New("fingerprint: value cannot be stored")
)

// Section names of the record file.
const (
	SectionGeneral  = "General"
	SectionImages   = "Images"
	SectionChunk    = "ChunkData"
	SectionSync     = "Synchronization"
	SectionExposure = "Exposure"
)

const notesSizeKey = `Notes\size`

func noteKey(i int) string {
	return fmt.Sprintf(`Notes\%d\note`, i+1)
}

var loadOptions = ini.LoadOptions{IgnoreInlineComment: true, IgnoreContinuation: true}

// Exists reports whether a record file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads the record at path. Values that are missing or unreadable take
// their built-in defaults. A record flagged ExplicitlyIgnored is returned with
// only that flag read.
func Load(path string) (*Record, error) {
	if !Exists(path) {
		return nil, ErrNotFound
	}
	cfg, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return decode(cfg), nil
}

// Save writes rec to path, replacing the groups it owns and keeping any other
// group already in the file. The write is atomic.
func Save(path string, rec *Record) error {
	if err := checkStorable(rec); err != nil {
		return err
	}

	cfg := ini.Empty(loadOptions)
	if Exists(path) {
		existing, err := ini.LoadSources(loadOptions, path)
		if err == nil {
			cfg = existing
		}
	}

	encode(cfg, rec)
	return writeRecord(path, cfg)
}

// SetFlag writes a single boolean into the General group without touching
// anything else.
func SetFlag(path, key string, value bool) error {
	cfg := ini.Empty(loadOptions)
	if Exists(path) {
		existing, err := ini.LoadSources(loadOptions, path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		cfg = existing
	}
	cfg.Section(SectionGeneral).Key(key).SetValue(strconv.FormatBool(value))
	return writeRecord(path, cfg)
}

// writeRecord streams cfg into a hidden temporary file next to path and
// renames it over the record. A reader sees the old record or the new one.
// The leading dot keeps the temporary file out of the watcher's view.
func writeRecord(path string, cfg *ini.File) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("fingerprint: save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := cfg.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("fingerprint: encode %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("fingerprint: save %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fingerprint: save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fingerprint: save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("fingerprint: save %s: %w", path, err)
	}
	return nil
}

// checkStorable rejects records holding text that would not load back as
// written.
func checkStorable(rec *Record) error {
	fields := []struct {
		name, value string
	}{
		{"Name", rec.General.Name},
		{"Description", rec.General.Description},
		{"ProjectFileName", rec.Sync.ProjectFile},
		{"RawFolder", rec.Images.RawFolder},
		{"ProcessedFolder", rec.Images.ProcessedFolder},
		{"MasksFolder", rec.Images.MasksFolder},
	}
	for i, note := range rec.General.Notes {
		fields = append(fields, struct{ name, value string }{fmt.Sprintf("note %d", i+1), note})
	}
	for _, f := range fields {
		if strings.Contains(f.value, `"""`) {
			return fmt.Errorf("%w: %s contains \"\"\"", ErrUnencodable, f.name)
		}
	}
	return nil
}

func decode(cfg *ini.File) *Record {
	rec := NewRecord()

	g := cfg.Section(SectionGeneral)
	rec.General.ExplicitlyIgnored = g.Key("ExplicitlyIgnored").MustBool(false)
	rec.General.IsInitialized = g.Key("IsInitialized").MustBool(true)
	if rec.General.ExplicitlyIgnored {
		// An ignored session keeps its defaults; nothing past the flag is read.
		return rec
	}

	rec.General.ID = g.Key("ID").MustUint64(0)
	rec.General.Name = g.Key("Name").String()
	rec.General.Description = g.Key("Description").String()
	if n := g.Key(notesSizeKey).MustInt(0); n > 0 {
		rec.General.Notes = make([]string, 0, n)
		for i := 0; i < n; i++ {
			rec.General.Notes = append(rec.General.Notes, g.Key(noteKey(i)).String())
		}
	}
	if raw := g.Key("DateTime").String(); raw != "" {
		if t, err := time.ParseInLocation(DateTimeLayout, raw, time.Local); err == nil {
			rec.General.CapturedAt = t
		}
	}
	rec.General.Status = g.Key("Status").MustInt(0)

	im := cfg.Section(SectionImages)
	rec.Images.RawCount = im.Key("RawImageCount").MustInt(-1)
	rec.Images.ProcessedCount = im.Key("ProcessedImageCount").MustInt(-1)
	rec.Images.MaskCount = im.Key("MaskImageCount").MustInt(-1)
	rec.Images.RawFolder = im.Key("RawFolder").MustString(rec.Images.RawFolder)
	rec.Images.ProcessedFolder = im.Key("ProcessedFolder").MustString(rec.Images.ProcessedFolder)
	rec.Images.MasksFolder = im.Key("MasksFolder").MustString(rec.Images.MasksFolder)

	if sec, err := cfg.GetSection(SectionChunk); err == nil {
		rec.Chunk = &ChunkData{
			ChunkCount:            sec.Key("ChunkCount").MustInt(0),
			ActiveChunkIndex:      sec.Key("ActiveChunkIndex").MustInt(0),
			ChunkImages:           sec.Key("ChunkImages").MustInt(-1),
			ChunkCameras:          sec.Key("ChunkCameras").MustInt(-1),
			AlignmentLevel:        sec.Key("AlignmentLevelString").String(),
			AlignmentFeatureLimit: sec.Key("AlignmentFeatureLimit").MustInt(0),
			AlignmentTieLimit:     sec.Key("AlignmentTieLimit").MustInt(0),
			DenseCloudLevel:       sec.Key("DenseCloudLevelString").String(),
			DenseCloudImagesUsed:  sec.Key("DenseCloudImagesUsed").MustInt(0),
			HasMesh:               sec.Key("HasMesh").MustBool(false),
			MeshFaces:             sec.Key("MeshFaces").MustInt64(0),
			MeshVerts:             sec.Key("MeshVerts").MustInt64(0),
			TextureCount:          sec.Key("TextureCount").MustInt(0),
			TextureWidth:          sec.Key("TextureWidth").MustInt(0),
			TextureHeight:         sec.Key("TextureHeight").MustInt(0),
		}
	}

	s := cfg.Section(SectionSync)
	rec.Sync.ProjectFile = s.Key("ProjectFileName").String()
	rec.Sync.Project = s.Key("ProjectFileTimestamp").MustInt64(0)
	rec.Sync.Raw = s.Key("RawTimestamp").MustInt64(0)
	rec.Sync.Processed = s.Key("ProcessedTimestamp").MustInt64(0)
	rec.Sync.Masks = s.Key("MasksTimestamp").MustInt64(0)

	if sec, err := cfg.GetSection(SectionExposure); err == nil {
		d := exposure.Default
		e := exposure.Settings{
			WBMode: exposure.WhiteBalanceMode(sec.Key("WhiteBalanceMode").MustInt(int(d.WBMode))),
			WBCustom: [4]float64{
				sec.Key("WhiteBalanceMode/R").MustFloat64(d.WBCustom[0]),
				sec.Key("WhiteBalanceMode/G1").MustFloat64(d.WBCustom[1]),
				sec.Key("WhiteBalanceMode/B").MustFloat64(d.WBCustom[2]),
				sec.Key("WhiteBalanceMode/G2").MustFloat64(d.WBCustom[3]),
			},
			BrightMode:  exposure.BrightnessMode(sec.Key("BrightnessMode").MustInt(int(d.BrightMode))),
			BrightScale: sec.Key("BrightnessMode/Scaler").MustFloat64(d.BrightScale),
		}
		rec.Exposure = &e
	}

	return rec
}

// kv is an ordered list of key/value pairs for one group.
type kv [][2]string

func (p *kv) add(key, value string) { *p = append(*p, [2]string{key, value}) }

// replaceKeys swaps the contents of sec for pairs, keeping the section where
// it is in the file.
func replaceKeys(sec *ini.Section, pairs kv) {
	for _, name := range sec.KeyStrings() {
		sec.DeleteKey(name)
	}
	for _, p := range pairs {
		sec.Key(p[0]).SetValue(quote(p[1]))
	}
}

// quote wraps single-line values that the parser would otherwise trim or
// unquote on load in the multiline marker, which it strips verbatim.
// Multiline values and values with a backtick are wrapped by the writer.
func quote(v string) string {
	if v == "" || strings.ContainsAny(v, "\n`") {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if strings.TrimSpace(v) != v || (len(v) >= 2 && first == last && (first == '"' || first == '\'')) {
		return `"""` + v + `"""`
	}
	return v
}

func itoa(v int) string     { return strconv.Itoa(v) }
func i64toa(v int64) string { return strconv.FormatInt(v, 10) }
func btoa(v bool) string    { return strconv.FormatBool(v) }

func encode(cfg *ini.File, rec *Record) {
	var g kv
	g.add("ID", strconv.FormatUint(rec.General.ID, 10))
	if rec.General.Name != "" {
		g.add("Name", rec.General.Name)
	}
	if rec.General.Description != "" {
		g.add("Description", rec.General.Description)
	}
	if len(rec.General.Notes) > 0 {
		for i, note := range rec.General.Notes {
			g.add(noteKey(i), note)
		}
		g.add(notesSizeKey, itoa(len(rec.General.Notes)))
	}
	if !rec.General.CapturedAt.IsZero() {
		g.add("DateTime", rec.General.CapturedAt.In(time.Local).Format(DateTimeLayout))
	}
	g.add("Status", itoa(rec.General.Status))
	g.add("ExplicitlyIgnored", btoa(rec.General.ExplicitlyIgnored))
	g.add("IsInitialized", btoa(rec.General.IsInitialized))
	replaceKeys(cfg.Section(SectionGeneral), g)

	var im kv
	im.add("RawImageCount", itoa(rec.Images.RawCount))
	im.add("ProcessedImageCount", itoa(rec.Images.ProcessedCount))
	im.add("MaskImageCount", itoa(rec.Images.MaskCount))
	im.add("RawFolder", rec.Images.RawFolder)
	im.add("ProcessedFolder", rec.Images.ProcessedFolder)
	im.add("MasksFolder", rec.Images.MasksFolder)
	replaceKeys(cfg.Section(SectionImages), im)

	if c := rec.Chunk; c != nil {
		var ch kv
		ch.add("ChunkCount", itoa(c.ChunkCount))
		ch.add("ActiveChunkIndex", itoa(c.ActiveChunkIndex))
		ch.add("ChunkImages", itoa(c.ChunkImages))
		ch.add("ChunkCameras", itoa(c.ChunkCameras))
		ch.add("AlignmentLevelString", c.AlignmentLevel)
		ch.add("AlignmentFeatureLimit", itoa(c.AlignmentFeatureLimit))
		ch.add("AlignmentTieLimit", itoa(c.AlignmentTieLimit))
		ch.add("DenseCloudLevelString", c.DenseCloudLevel)
		ch.add("DenseCloudImagesUsed", itoa(c.DenseCloudImagesUsed))
		ch.add("HasMesh", btoa(c.HasMesh))
		ch.add("MeshFaces", i64toa(c.MeshFaces))
		ch.add("MeshVerts", i64toa(c.MeshVerts))
		ch.add("TextureCount", itoa(c.TextureCount))
		ch.add("TextureWidth", itoa(c.TextureWidth))
		ch.add("TextureHeight", itoa(c.TextureHeight))
		replaceKeys(cfg.Section(SectionChunk), ch)
	} else {
		cfg.DeleteSection(SectionChunk)
	}

	var s kv
	if rec.Sync.ProjectFile != "" {
		s.add("ProjectFileName", rec.Sync.ProjectFile)
		s.add("ProjectFileTimestamp", i64toa(rec.Sync.Project))
	}
	s.add("RawTimestamp", i64toa(rec.Sync.Raw))
	s.add("ProcessedTimestamp", i64toa(rec.Sync.Processed))
	s.add("MasksTimestamp", i64toa(rec.Sync.Masks))
	replaceKeys(cfg.Section(SectionSync), s)

	if e := rec.Exposure; e != nil {
		var ex kv
		ex.add("WhiteBalanceMode", itoa(int(e.WBMode)))
		ex.add("WhiteBalanceMode/R", formatFloat(e.WBCustom[0]))
		ex.add("WhiteBalanceMode/G1", formatFloat(e.WBCustom[1]))
		ex.add("WhiteBalanceMode/B", formatFloat(e.WBCustom[2]))
		ex.add("WhiteBalanceMode/G2", formatFloat(e.WBCustom[3]))
		ex.add("BrightnessMode", itoa(int(e.BrightMode)))
		ex.add("BrightnessMode/Scaler", formatFloat(e.BrightScale))
		replaceKeys(cfg.Section(SectionExposure), ex)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
