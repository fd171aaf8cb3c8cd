package cmd

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/smazurov/debezel/internal/encode"
)

// barScale is the number of bar steps per percent.
const barScale = 10

// reporter renders run progress: a progress bar on a terminal, otherwise
// one line per whole percent or phase change.
type reporter struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar

	lastLine    int
	lastMessage string
}

func newReporter(w io.Writer, interactive bool) *reporter {
	r := &reporter{w: w, lastLine: -1}
	if interactive {
		r.bar = progressbar.NewOptions(100*barScale,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Starting..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return r
}

// Notify implements encode.Notifier.
func (r *reporter) Notify(p encode.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		r.bar.Describe(p.Message)
		if p.HasPercent() {
			_ = r.bar.Set(int(math.Round(*p.Percent * barScale)))
		}
		return
	}

	if !p.HasPercent() {
		if p.Message != r.lastMessage {
			fmt.Fprintln(r.w, p.Message)
		}
		r.lastMessage = p.Message
		return
	}
	whole := int(math.Floor(*p.Percent))
	if whole == r.lastLine && p.Message == r.lastMessage {
		return
	}
	r.lastLine, r.lastMessage = whole, p.Message
	fmt.Fprintf(r.w, "%3d%%  %s\n", whole, p.Message)
}

// Close finishes the bar. ok is false when the run failed.
func (r *reporter) Close(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	if ok {
		_ = r.bar.Finish()
	} else {
		_ = r.bar.Exit()
	}
	fmt.Fprintln(r.w)
}
