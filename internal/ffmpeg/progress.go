package ffmpeg

import (
	"strconv"
	"strings"
)

// Update is one progress observation derived from the engine's
// machine-readable "-progress" output. Percent is nil when the total
// duration is unknown.
type Update struct {
	Percent *float64
	Message string
	OutTime float64 // seconds of output encoded so far
}

// ProgressParser turns key=value progress lines for a single pass into
// overall percentages. Each pass covers half of the 0..100 range.
//
// Percentages never decrease: a reading lower than the last emitted one is
// dropped. Equal readings are emitted again.
type ProgressParser struct {
	pass        Pass
	duration    float64
	outTime     float64
	lastPercent float64
}

// NewProgressParser creates a parser for pass. durationSec <= 0 means the
// duration is unknown; it may still be learned from a "duration=" line.
func NewProgressParser(pass Pass, durationSec float64) *ProgressParser {
	return &ProgressParser{
		pass:        pass,
		duration:    max(durationSec, 0),
		lastPercent: pass.Offset(),
	}
}

// Duration returns the total duration in seconds, or 0 if unknown.
func (p *ProgressParser) Duration() float64 {
	return p.duration
}

// Feed consumes one line. It reports an Update when the line advances
// progress, or a label-only Update at block boundaries when no duration is
// known.
func (p *ProgressParser) Feed(line string) (Update, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Update{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "duration":
		if p.duration <= 0 {
			if d, err := strconv.ParseFloat(value, 64); err == nil && d > 0 {
				p.duration = d
			}
		}
		return Update{}, false

	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return Update{}, false
		}
		return p.advance(float64(us) / 1e6)

	case "out_time":
		sec, ok := ParseClock(value)
		if !ok {
			return Update{}, false
		}
		return p.advance(sec)

	case "progress":
		if p.duration > 0 {
			return Update{}, false
		}
		return Update{Message: p.pass.Label(), OutTime: p.outTime}, true
	}
	return Update{}, false
}

func (p *ProgressParser) advance(sec float64) (Update, bool) {
	p.outTime = sec
	if p.duration <= 0 {
		return Update{}, false
	}

	fraction := min(1, sec/p.duration)
	percent := min(100, p.pass.Offset()+fraction*passWeight*100)
	if percent < p.lastPercent {
		return Update{}, false
	}
	p.lastPercent = percent
	return Update{Percent: &percent, Message: p.pass.Label(), OutTime: sec}, true
}

// ParseClock parses an "HH:MM:SS.ffffff" timestamp into seconds.
func ParseClock(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + sec, true
}
