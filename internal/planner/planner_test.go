package planner

import (
	"math"
	"testing"

	"github.com/smazurov/debezel/internal/geometry"
)

func ptr(v float64) *float64 { return &v }

func TestVideoBitrateDefaults(t *testing.T) {
	tests := []struct {
		name     string
		size     *float64
		duration *float64
	}{
		{"no size", nil, ptr(60)},
		{"no size no duration", nil, nil},
		{"no duration", ptr(200), nil},
		{"zero duration", ptr(200), ptr(0)},
		{"negative duration", ptr(200), ptr(-3)},
		{"zero size", ptr(0), ptr(60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PlanBitrate(tt.size, tt.duration)
			if d.Kbps != DefaultVideoBitrateKbps {
				t.Errorf("Kbps = %d, want %d", d.Kbps, DefaultVideoBitrateKbps)
			}
			if d.Source != SourceDefault {
				t.Errorf("Source = %s, want %s", d.Source, SourceDefault)
			}
			if d.Clamped {
				t.Error("default bitrate must not be reported as clamped")
			}
		})
	}
}

func TestVideoBitrateClampBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		size        float64
		duration    float64
		want        int
		wantClamped bool
	}{
		{"one hour at 100MB clamps to minimum", 100, 3600, MinVideoBitrateKbps, true},
		{"ten seconds at 500MB clamps to maximum", 500, 10, MaxVideoBitrateKbps, true},
		{"five seconds at 100MB clamps to maximum", 100, 5, MaxVideoBitrateKbps, true},
		{"ten minutes at 200MB in range", 200, 600, 2636, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PlanBitrate(ptr(tt.size), ptr(tt.duration))
			if d.Kbps != tt.want {
				t.Errorf("Kbps = %d, want %d (unclamped %d)", d.Kbps, tt.want, d.UnclampedKbps)
			}
			if d.Clamped != tt.wantClamped {
				t.Errorf("Clamped = %v, want %v", d.Clamped, tt.wantClamped)
			}
			if d.Source != SourceTargetSize {
				t.Errorf("Source = %s, want %s", d.Source, SourceTargetSize)
			}
		})
	}
}

func TestVideoBitrateUnclampedFormula(t *testing.T) {
	// ((100*8*1024*1024) - 160000*5) / 5 / 1000 = 167612.16 -> 167612
	d := PlanBitrate(ptr(100), ptr(5))
	if d.UnclampedKbps != 167612 {
		t.Errorf("UnclampedKbps = %d, want 167612", d.UnclampedKbps)
	}
	if got := VideoBitrateKbps(ptr(100), ptr(5)); got != 50000 {
		t.Errorf("VideoBitrateKbps = %d, want 50000", got)
	}
}

func TestVideoBitrateJustInsideBounds(t *testing.T) {
	// Pick durations that land exactly on the bounds before clamping.
	for _, kbps := range []int{MinVideoBitrateKbps, MaxVideoBitrateKbps} {
		duration := 100.0
		sizeMB := float64(kbps+AudioBitrateKbps) * 1000 * duration / 8 / 1024 / 1024
		d := PlanBitrate(ptr(sizeMB), ptr(duration))
		if d.Kbps != kbps || d.Clamped {
			t.Errorf("bound %d: got %d clamped=%v", kbps, d.Kbps, d.Clamped)
		}
	}
}

func TestEstimateSizeMB(t *testing.T) {
	got := EstimateSizeMB(2636, 600)
	if math.Abs(got-200) > 0.1 {
		t.Errorf("EstimateSizeMB = %.3f, want ~200", got)
	}
	if EstimateSizeMB(10000, 0) != 0 {
		t.Error("expected 0 for unknown duration")
	}
}

func TestNewPlanFixedParameters(t *testing.T) {
	graph := geometry.Build(geometry.LayoutHorizontal, geometry.DefaultBezel())
	p := NewPlan(graph, PlanBitrate(nil, nil))

	checks := map[string][2]string{
		"codec":   {p.VideoCodec, "libx264"},
		"pix_fmt": {p.PixelFormat, "yuv422p10le"},
		"profile": {p.Profile, "high422"},
		"level":   {p.Level, "5.2"},
		"preset":  {p.Preset, "medium"},
		"tune":    {p.Tune, "animation"},
		"audio":   {p.AudioCodec, "aac"},
		"b:v":     {p.VideoBitrate(), "10000k"},
		"b:a":     {p.AudioBitrate(), "160k"},
		"size":    {p.OutputSize(), "4320x1920"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if p.AudioChannels != 2 {
		t.Errorf("AudioChannels = %d, want 2", p.AudioChannels)
	}
	if p.Graph.String() != graph.String() {
		t.Error("plan graph differs from input graph")
	}
}
