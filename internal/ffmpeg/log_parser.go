package ffmpeg

import (
	"log/slog"
	"strings"
)

// LogLine is one stderr line split into its parts.
type LogLine struct {
	Level     string // ffmpeg level name; "error" when the line carries none
	Component string // e.g. "libx264 @ 0x55d0c8e3a540", empty if absent
	Message   string
}

// ParseLogLine splits engine stderr output. Lines look like
// "[level] message", "[component @ 0x...] [level] message",
// "[component @ 0x...] message", or plain text. Runs use "-loglevel error",
// so lines without an explicit level are errors.
func ParseLogLine(line string) LogLine {
	out := LogLine{Level: "error", Message: line}
	rest := line

	head, tail, ok := bracketed(rest)
	if !ok {
		return out
	}
	if isLogLevel(head) {
		out.Level = head
		out.Message = tail
		return out
	}

	out.Component = head
	out.Message = tail
	if lvl, msg, ok := bracketed(tail); ok && isLogLevel(lvl) {
		out.Level = lvl
		out.Message = msg
	}
	return out
}

// ParseLogLevel returns the level and the message with the level tag
// stripped but any component prefix kept.
func ParseLogLevel(line string) (level, msg string) {
	l := ParseLogLine(line)
	if l.Component != "" {
		return l.Level, "[" + l.Component + "] " + l.Message
	}
	return l.Level, l.Message
}

// SlogLevel maps an ffmpeg level name to a slog level.
func SlogLevel(level string) slog.Level {
	switch level {
	case "quiet", "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func bracketed(s string) (inner, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
