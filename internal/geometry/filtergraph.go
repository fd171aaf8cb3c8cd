package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// StageKind names an ffmpeg filter used by the debezel pipeline.
type StageKind string

// Filters used by the pipeline.
const (
	StageCrop      StageKind = "crop"
	StageTranspose StageKind = "transpose"
	StageHStack    StageKind = "hstack"
	StageScale     StageKind = "scale"
)

// Well-known pad labels.
const (
	SourceLabel = "0:v"
	OutputLabel = "v"
)

// transposeCCW rotates 90° counter-clockwise (landscape band → portrait panel).
const transposeCCW = "2"

// Stage is one filter in the graph with explicit input and output pads.
type Stage struct {
	Kind    StageKind `json:"kind"`
	Inputs  []string  `json:"inputs"`
	Outputs []string  `json:"outputs"`
	Args    []string  `json:"args"`
}

// String renders the stage in filter_complex syntax, e.g. "[0:v]crop=iw/4:ih:0:0[a1]".
func (s Stage) String() string {
	var b strings.Builder
	for _, in := range s.Inputs {
		b.WriteString("[" + in + "]")
	}
	b.WriteString(string(s.Kind))
	if len(s.Args) > 0 {
		b.WriteString("=" + strings.Join(s.Args, ":"))
	}
	for _, out := range s.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// FilterGraph is the declarative pixel pipeline for one layout and bezel.
// It describes geometry only and carries no encoder settings.
type FilterGraph struct {
	Layout Layout  `json:"layout"`
	Bezel  Bezel   `json:"bezel"`
	Stages []Stage `json:"stages"`
}

// String renders the graph as an ffmpeg -filter_complex argument.
func (g FilterGraph) String() string {
	parts := make([]string, len(g.Stages))
	for i, s := range g.Stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";")
}

// Build derives the filter graph for a layout. The bezel must already be valid.
//
// Horizontal composites are cut into four vertical strips. Vertical stacks are
// cut into four horizontal bands which are rotated 90° CCW into portrait. Either
// way each panel then loses TopPx from its left edge and BottomPx from its right
// edge, the panels are stacked left to right and the result is Lanczos-scaled to
// OutputWidth×OutputHeight.
func Build(layout Layout, bezel Bezel) FilterGraph {
	g := FilterGraph{Layout: layout, Bezel: bezel}

	for i := range PanelCount {
		g.Stages = append(g.Stages, Stage{
			Kind:    StageCrop,
			Inputs:  []string{SourceLabel},
			Outputs: []string{panelLabel("a", i)},
			Args:    panelCropArgs(layout, i),
		})
	}

	panelPads := make([]string, PanelCount)
	for i := range PanelCount {
		panelPads[i] = panelLabel("a", i)
	}
	if layout == LayoutVertical {
		for i := range PanelCount {
			g.Stages = append(g.Stages, Stage{
				Kind:    StageTranspose,
				Inputs:  []string{panelLabel("a", i)},
				Outputs: []string{panelPads[i] + "r"},
				Args:    []string{transposeCCW},
			})
			panelPads[i] += "r"
		}
	}

	cropWidth := fmt.Sprintf("iw-%d-%d", bezel.TopPx, bezel.BottomPx)
	stacked := make([]string, 0, PanelCount)
	for i := range PanelCount {
		out := panelLabel("b", i)
		g.Stages = append(g.Stages, Stage{
			Kind:    StageCrop,
			Inputs:  []string{panelPads[i]},
			Outputs: []string{out},
			Args:    []string{cropWidth, "ih", strconv.Itoa(bezel.TopPx), "0"},
		})
		stacked = append(stacked, out)
	}

	g.Stages = append(g.Stages,
		Stage{
			Kind:    StageHStack,
			Inputs:  stacked,
			Outputs: []string{"v0"},
			Args:    []string{"inputs=" + strconv.Itoa(PanelCount)},
		},
		Stage{
			Kind:    StageScale,
			Inputs:  []string{"v0"},
			Outputs: []string{OutputLabel},
			Args:    []string{strconv.Itoa(OutputWidth), strconv.Itoa(OutputHeight), "flags=lanczos"},
		},
	)
	return g
}

func panelLabel(prefix string, i int) string {
	return prefix + strconv.Itoa(i+1)
}

// Offsets of panels 1..4 along the split axis of the source canvas.
var (
	stripOffsets = [PanelCount]string{"0", "iw/4", "iw/2", "3*iw/4"}
	bandOffsets  = [PanelCount]string{"0", "ih/4", "ih/2", "3*ih/4"}
)

// panelCropArgs returns width:height:x:y selecting panel i from the source canvas.
func panelCropArgs(layout Layout, i int) []string {
	if layout == LayoutVertical {
		return []string{"iw", "ih/4", "0", bandOffsets[i]}
	}
	return []string{"iw/4", "ih", stripOffsets[i], "0"}
}

// Evaluate computes the frame size on every pad of the graph for a source of
// the given size. Unknown pads or malformed expressions are reported as errors.
func (g FilterGraph) Evaluate(src Dimensions) (map[string]Dimensions, error) {
	pads := map[string]Dimensions{SourceLabel: src}

	for _, st := range g.Stages {
		in := make([]Dimensions, len(st.Inputs))
		for i, label := range st.Inputs {
			d, ok := pads[label]
			if !ok {
				return nil, fmt.Errorf("stage %s: unknown input pad %q", st.Kind, label)
			}
			in[i] = d
		}

		var out Dimensions
		switch st.Kind {
		case StageCrop:
			if len(st.Args) < 2 {
				return nil, fmt.Errorf("crop: expected width and height, got %v", st.Args)
			}
			w, err := evalExpr(st.Args[0], in[0])
			if err != nil {
				return nil, err
			}
			h, err := evalExpr(st.Args[1], in[0])
			if err != nil {
				return nil, err
			}
			out = Dimensions{Width: w, Height: h}
		case StageTranspose:
			out = Dimensions{Width: in[0].Height, Height: in[0].Width}
		case StageHStack:
			out.Height = in[0].Height
			for _, d := range in {
				out.Width += d.Width
			}
		case StageScale:
			w, err := strconv.Atoi(st.Args[0])
			if err != nil {
				return nil, fmt.Errorf("scale width: %w", err)
			}
			h, err := strconv.Atoi(st.Args[1])
			if err != nil {
				return nil, fmt.Errorf("scale height: %w", err)
			}
			out = Dimensions{Width: w, Height: h}
		default:
			return nil, fmt.Errorf("unsupported stage %q", st.Kind)
		}

		for _, label := range st.Outputs {
			pads[label] = out
		}
	}
	return pads, nil
}

// PanelSizes returns the size of each debezeled panel, left to right.
func (g FilterGraph) PanelSizes(src Dimensions) ([]Dimensions, error) {
	pads, err := g.Evaluate(src)
	if err != nil {
		return nil, err
	}
	sizes := make([]Dimensions, PanelCount)
	for i := range PanelCount {
		d, ok := pads[panelLabel("b", i)]
		if !ok {
			return nil, fmt.Errorf("panel %d missing from graph", i+1)
		}
		sizes[i] = d
	}
	return sizes, nil
}

// evalExpr evaluates the small crop-expression language used by Build:
// integer literals, iw and ih, combined with + - * / (left to right within
// the usual precedence levels).
func evalExpr(expr string, in Dimensions) (int, error) {
	terms, ops := splitTerms(expr)
	total := 0
	for i, term := range terms {
		v, err := evalTerm(term, in)
		if err != nil {
			return 0, fmt.Errorf("expression %q: %w", expr, err)
		}
		if i == 0 || ops[i-1] == '+' {
			total += v
		} else {
			total -= v
		}
	}
	return total, nil
}

func splitTerms(expr string) (terms []string, ops []byte) {
	start := 0
	for i := 0; i < len(expr); i++ {
		if (expr[i] == '+' || expr[i] == '-') && i > 0 {
			terms = append(terms, expr[start:i])
			ops = append(ops, expr[i])
			start = i + 1
		}
	}
	return append(terms, expr[start:]), ops
}

func evalTerm(term string, in Dimensions) (int, error) {
	value, op, tokStart := 0, byte(0), 0
	for i := 0; i <= len(term); i++ {
		if i < len(term) && term[i] != '*' && term[i] != '/' {
			continue
		}
		v, err := evalFactor(term[tokStart:i], in)
		if err != nil {
			return 0, err
		}
		switch op {
		case 0:
			value = v
		case '*':
			value *= v
		case '/':
			if v == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			value /= v
		}
		if i < len(term) {
			op = term[i]
		}
		tokStart = i + 1
	}
	return value, nil
}

func evalFactor(tok string, in Dimensions) (int, error) {
	switch strings.TrimSpace(tok) {
	case "iw":
		return in.Width, nil
	case "ih":
		return in.Height, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, fmt.Errorf("bad factor %q", tok)
	}
	return v, nil
}
