package status

import "testing"

func TestStatusTableCoverage(t *testing.T) {
	all := All()
	if len(all) != int(FinalApproval)+1 {
		t.Fatalf("All() returned %d statuses, want %d", len(all), int(FinalApproval)+1)
	}
	seen := make(map[string]bool)
	for i, s := range all {
		if int(s) != i {
			t.Errorf("All()[%d] = %d, table out of order", i, s)
		}
		if s.String() == "" || s.ShortName() == "" || s.Description() == "" {
			t.Errorf("status %d has an empty table entry", s)
		}
		if seen[s.ShortName()] {
			t.Errorf("duplicate short name %q", s.ShortName())
		}
		seen[s.ShortName()] = true
	}
}

func TestStatusStringOutOfRange(t *testing.T) {
	if got := Status(42).String(); got != "Status(42)" {
		t.Errorf("String() = %q, want %q", got, "Status(42)")
	}
	if Status(-1).Valid() {
		t.Error("Status(-1).Valid() = true, want false")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"TextureGenDone", TextureGenDone, false},
		{"texture", TextureGenDone, false},
		{" approved ", FinalApproval, false},
		{"UNPROCESSED", Unprocessed, false},
		{"bogus", Unknown, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCustom(t *testing.T) {
	tests := []struct {
		offset int
		want   Status
		ok     bool
	}{
		{0, Unknown, false},
		{-3, Unknown, false},
		{1, ModelEditing, true},
		{2, ModelEditingDone, true},
		{4, FinalApproval, true},
		{5, Unknown, false},
	}
	for _, tt := range tests {
		got, ok := Custom(tt.offset)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Custom(%d) = (%v, %v), want (%v, %v)", tt.offset, got, ok, tt.want, tt.ok)
		}
	}
}

func fullMetrics() Metrics {
	return Metrics{
		HasDescriptor:         true,
		ChunkImages:           48,
		ChunkCameras:          50,
		AlignmentLevel:        "High",
		AlignmentFeatureLimit: 40000,
		AlignmentTieLimit:     4000,
		DenseCloudLevel:       "Medium",
		DenseCloudImagesUsed:  48,
		HasMesh:               true,
		MeshFaces:             250000,
		MeshVerts:             125000,
		TextureCount:          1,
		TextureWidth:          4096,
		TextureHeight:         4096,
		RawCount:              50,
		ProcessedCount:        50,
	}
}

func TestAutoPhaseChain(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Metrics)
		want   Status
	}{
		{"complete", func(m *Metrics) {}, TextureGenDone},
		{"no texture", func(m *Metrics) { m.TextureCount = 0 }, ModelGenDone},
		{"no mesh", func(m *Metrics) { m.HasMesh = false }, PointCloudDone},
		{"no dense cloud", func(m *Metrics) { m.DenseCloudLevel = "" }, AlignmentDone},
		{"no alignment", func(m *Metrics) { m.AlignmentLevel = "" }, RawProcessingDone},
		{"no descriptor", func(m *Metrics) { m.HasDescriptor = false }, RawProcessingDone},
		{"no raw images, no descriptor", func(m *Metrics) {
			m.HasDescriptor = false
			m.RawCount = 0
			m.ProcessedCount = 0
		}, RawProcessingDone},
		{"unprocessed", func(m *Metrics) {
			m.HasDescriptor = false
			m.ProcessedCount = 0
		}, Unprocessed},
		{"descriptor but nothing processed", func(m *Metrics) { m.ProcessedCount = 0 }, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fullMetrics()
			tt.modify(&m)
			if got := Auto(Unknown, m, false); got != tt.want {
				t.Errorf("Auto() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutoKeepsCustomStatus(t *testing.T) {
	for _, current := range []Status{ModelEditing, ModelEditingDone, FinalReview, FinalApproval} {
		for _, m := range []Metrics{{}, fullMetrics(), {RawCount: 3}} {
			if got := Auto(current, m, false); got != current {
				t.Errorf("Auto(%v, %+v, false) = %v, want unchanged", current, m, got)
			}
		}
	}
	if got := Auto(FinalApproval, fullMetrics(), true); got != TextureGenDone {
		t.Errorf("Auto(FinalApproval, overwrite) = %v, want %v", got, TextureGenDone)
	}
}

func TestParseField(t *testing.T) {
	for _, f := range Fields() {
		got, err := ParseField(f.ShortName())
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = (%v, %v), want %v", f.ShortName(), got, err, f)
		}
		got, err = ParseField(f.String())
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = (%v, %v), want %v", f.String(), got, err, f)
		}
		if f.Description() == "" {
			t.Errorf("field %v has no description", f)
		}
	}
	if _, err := ParseField("nope"); err == nil {
		t.Error("ParseField(nope) returned nil error")
	}
}
