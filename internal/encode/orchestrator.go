// Package encode runs the two-pass bezel-removal encode for one input file.
//
// A run locates the engine, validates its inputs, probes the source, builds
// the filter graph and bitrate plan, then drives two sequential ffmpeg
// passes that share a pass-log. Progress from both passes is folded into a
// single 0..100 signal that never decreases.
package encode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/debezel/internal/ffmpeg"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/planner"
	"github.com/smazurov/debezel/internal/probe"
	"github.com/smazurov/debezel/internal/process"
)

// DoneMessage is the final progress message of a successful run.
const DoneMessage = "Done."

// Request describes one run.
type Request struct {
	Input        string         `json:"input"`
	Output       string         `json:"output,omitempty"` // empty: next to the input
	Bezel        geometry.Bezel `json:"bezel"`
	TargetSizeMB *float64       `json:"target_size_mb,omitempty"`
}

// Result describes a successful run.
type Result struct {
	OutputPath      string              `json:"output_path"`
	Source          geometry.Dimensions `json:"source"`
	SourceKnown     bool                `json:"source_known"`
	Layout          geometry.Layout     `json:"layout"`
	Plan            planner.EncodePlan  `json:"plan"`
	DurationSeconds float64             `json:"duration_seconds"` // 0 when unknown
	PassDurations   [2]time.Duration    `json:"pass_durations"`
	Elapsed         time.Duration       `json:"elapsed"`
}

// Preview is what a run would do, without running it.
type Preview struct {
	Engine          string              `json:"engine"`
	Input           string              `json:"input"`
	Output          string              `json:"output"`
	Source          geometry.Dimensions `json:"source"`
	SourceKnown     bool                `json:"source_known"`
	DurationSeconds float64             `json:"duration_seconds"`
	Layout          geometry.Layout     `json:"layout"`
	Plan            planner.EncodePlan  `json:"plan"`
	EstimatedSizeMB float64             `json:"estimated_size_mb"` // 0 when duration unknown
}

// Orchestrator runs encodes. Zero-value Prober and Runner fields are filled
// with the ffprobe prober and the subprocess runner.
type Orchestrator struct {
	Locator ffmpeg.Locator
	Prober  probe.Prober
	Runner  process.Runner
	Logger  logging.Logger
}

// NewOrchestrator creates an orchestrator using locator to find ffmpeg.
func NewOrchestrator(locator ffmpeg.Locator, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.GetLogger("encode")
	}
	return &Orchestrator{Locator: locator, Logger: logger}
}

// EngineAvailable is the synchronous capability check.
func (o *Orchestrator) EngineAvailable() bool {
	return ffmpeg.Available(o.Locator)
}

// Engine returns the located engine path.
func (o *Orchestrator) Engine() (string, bool) {
	if o.Locator == nil {
		return "", false
	}
	return o.Locator()
}

type setup struct {
	engine      string
	input       string
	output      string
	source      geometry.Dimensions
	sourceKnown bool
	duration    float64
	layout      geometry.Layout
	plan        planner.EncodePlan
}

// validate runs every check that must pass before any external process.
func (o *Orchestrator) validate(req Request) (*setup, error) {
	engine, ok := o.Engine()
	if !ok {
		return nil, NewError(KindEngineNotFound, "ffmpeg not found; install it or set the engine path", nil)
	}

	if strings.TrimSpace(req.Input) == "" {
		return nil, NewError(KindInputNotFound, "no input file given", nil)
	}
	input, err := filepath.Abs(req.Input)
	if err != nil {
		input = req.Input
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, NewError(KindInputNotFound, "input file not found: "+input, err)
	}
	if info.IsDir() {
		return nil, NewError(KindInputNotFound, "input is a directory: "+input, nil)
	}

	if err := req.Bezel.Validate(); err != nil {
		return nil, NewError(KindInvalidBezelSpec, "bezel values rejected", err)
	}

	output := req.Output
	if strings.TrimSpace(output) == "" {
		output = ResolveOutputPath(input, "")
	} else if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	if output == input {
		return nil, fmt.Errorf("output would overwrite the input: %s", output)
	}

	return &setup{engine: engine, input: input, output: output}, nil
}

// plan probes the source and fills in layout, graph and bitrate.
func (o *Orchestrator) plan(ctx context.Context, s *setup, req Request) {
	prober := o.prober(s.engine)

	s.layout = geometry.LayoutHorizontal
	if dims, ok := prober.Dimensions(ctx, s.input); ok {
		s.source, s.sourceKnown = dims, true
		s.layout = geometry.Detect(dims)
	} else {
		o.Logger.Warn("Source dimensions unknown, assuming horizontal layout",
			"input", s.input, "kind", KindProbeUnavailable)
	}

	var duration *float64
	if d, ok := prober.Duration(ctx, s.input); ok {
		s.duration = d
		duration = &d
	} else {
		o.Logger.Warn("Source duration unknown, using default bitrate",
			"input", s.input, "kind", KindProbeUnavailable)
	}

	decision := planner.PlanBitrate(req.TargetSizeMB, duration)
	if decision.Clamped {
		o.Logger.Warn("Target size not reachable within bitrate bounds",
			"requested_kbps", decision.UnclampedKbps,
			"kbps", decision.Kbps,
			"estimated_mb", planner.EstimateSizeMB(decision.Kbps, s.duration))
	}
	s.plan = planner.NewPlan(geometry.Build(s.layout, req.Bezel), decision)
}

// Preview validates req and reports the plan a run would use.
func (o *Orchestrator) Preview(ctx context.Context, req Request) (Preview, error) {
	s, err := o.validate(req)
	if err != nil {
		return Preview{}, err
	}
	o.plan(ctx, s, req)
	return Preview{
		Engine:          s.engine,
		Input:           s.input,
		Output:          s.output,
		Source:          s.source,
		SourceKnown:     s.sourceKnown,
		DurationSeconds: s.duration,
		Layout:          s.layout,
		Plan:            s.plan,
		EstimatedSizeMB: planner.EstimateSizeMB(s.plan.VideoBitrateKbps, s.duration),
	}, nil
}

// Run performs the encode. notify may be nil. On success the last event
// delivered is 100% "Done.". Pass-log files are removed on every path.
func (o *Orchestrator) Run(ctx context.Context, req Request, notify Notifier) (Result, error) {
	start := time.Now()

	s, err := o.validate(req)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(s.output), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	o.plan(ctx, s, req)

	o.Logger.Info("Starting encode",
		"input", s.input,
		"output", s.output,
		"layout", s.layout,
		"bitrate", s.plan.VideoBitrate(),
		"bitrate_source", s.plan.Bitrate.Source)

	gate := &monotonic{next: notify}
	if s.sourceKnown {
		gate.notify(At(0, fmt.Sprintf("Input: %s → Output: %d×%d",
			s.source, geometry.OutputWidth, geometry.OutputHeight)))
	}

	passLog, err := AcquirePassLog(PassLogPrefix(s.output))
	if err != nil {
		return Result{}, err
	}
	defer func() {
		removed, relErr := passLog.Release()
		if relErr != nil {
			o.Logger.Warn("Pass log cleanup incomplete", "prefix", passLog.Prefix(), "error", relErr)
		}
		o.Logger.Debug("Pass log released", "prefix", passLog.Prefix(), "removed", len(removed))
	}()

	res := Result{
		OutputPath:  s.output,
		Source:      s.source,
		SourceKnown: s.sourceKnown,
		Layout:      s.layout,
		Plan:        s.plan,
	}

	duration := s.duration
	for i, pass := range []ffmpeg.Pass{ffmpeg.PassAnalysis, ffmpeg.PassFinal} {
		gate.notify(At(pass.Offset(), pass.StartLabel()))

		spec := ffmpeg.PassSpec{
			Input:         s.input,
			Output:        s.output,
			Plan:          s.plan,
			Pass:          pass,
			PassLogPrefix: passLog.Prefix(),
		}
		passStart := time.Now()
		learned, err := o.runPass(ctx, s.engine, spec, duration, gate)
		res.PassDurations[i] = time.Since(passStart)
		if err != nil {
			o.Logger.Error("Encode failed", "pass", int(pass), "kind", KindOf(err), "error", err)
			return Result{}, err
		}
		duration = learned
	}

	res.DurationSeconds = duration
	res.Elapsed = time.Since(start)
	gate.notify(At(100, DoneMessage))
	o.Logger.Info("Encode finished", "output", s.output, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// runPass runs one pass and returns the duration known at its end.
func (o *Orchestrator) runPass(ctx context.Context, engine string, spec ffmpeg.PassSpec, duration float64, gate *monotonic) (float64, error) {
	pass := int(spec.Pass)
	if err := ctx.Err(); err != nil {
		return duration, canceled(pass, err)
	}

	parser := ffmpeg.NewProgressParser(spec.Pass, duration)
	argv := ffmpeg.BuildPassArgs(engine, spec)
	o.Logger.Debug("Running pass", "pass", pass, "command", ffmpeg.CommandLine(argv))

	result, err := o.runner().Run(ctx, argv, process.LineFunc(func(line string) {
		if u, ok := parser.Feed(line); ok {
			gate.notify(Progress{Percent: u.Percent, Message: u.Message})
		}
	}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
			if ctxErr == nil {
				ctxErr = err
			}
			return duration, canceled(pass, ctxErr)
		}
		return duration, &Error{
			Kind:       KindEncodeFailed,
			Pass:       pass,
			Message:    fmt.Sprintf("ffmpeg pass %d could not start", pass),
			Diagnostic: result.Stderr,
			Cause:      err,
		}
	}
	if result.ExitCode != 0 {
		return duration, encodeFailed(pass, result.ExitCode, result.Stderr)
	}
	return parser.Duration(), nil
}

func (o *Orchestrator) prober(engine string) probe.Prober {
	if o.Prober != nil {
		return o.Prober
	}
	return probe.NewFFprobe(ffmpeg.ProbePath(engine), logging.GetLogger("probe"))
}

func (o *Orchestrator) runner() process.Runner {
	if o.Runner != nil {
		return o.Runner
	}
	r := process.NewExecRunner(o.Logger)
	r.ProcessLogger = logging.GetLogger("ffmpeg")
	r.LogParser = ffmpeg.ParseLogLevel
	return r
}
