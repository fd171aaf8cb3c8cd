package ffmpeg

import "github.com/smazurov/debezel/internal/planner"

// Pass identifies one of the two encoder passes.
type Pass int

// Encoder passes.
const (
	PassAnalysis Pass = 1
	PassFinal    Pass = 2
)

// passWeight is the share of the overall progress range each pass covers.
const passWeight = 0.5

// Offset is the overall percentage at which the pass starts.
func (p Pass) Offset() float64 {
	if p == PassFinal {
		return passWeight * 100
	}
	return 0
}

// Label is the progress message emitted while the pass runs.
func (p Pass) Label() string {
	if p == PassFinal {
		return "Pass 2 (final)..."
	}
	return "Pass 1..."
}

// StartLabel is the progress message emitted when the pass begins.
func (p Pass) StartLabel() string {
	if p == PassFinal {
		return "Pass 2 (final encode)..."
	}
	return "Pass 1 (analysis)..."
}

func (p Pass) String() string {
	if p == PassFinal {
		return "2"
	}
	return "1"
}

// PassSpec is everything needed to produce the argv for one pass.
type PassSpec struct {
	Input         string
	Output        string // ignored by the analysis pass
	Plan          planner.EncodePlan
	Pass          Pass
	PassLogPrefix string // empty leaves the engine's default passlog name
}
