package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/smazurov/debezel/internal/geometry"
)

// Settings are the encode defaults shared by the CLI subcommands and the
// server. Field names map to flags through fieldNameToFlag.
type Settings struct {
	Config string

	EnginePath    string  `toml:"engine.path" env:"ENGINE_PATH"`
	BezelTopPx    int     `toml:"bezel.top_px" env:"BEZEL_TOP_PX"`
	BezelBottomPx int     `toml:"bezel.bottom_px" env:"BEZEL_BOTTOM_PX"`
	TargetSizeMB  float64 `toml:"encode.target_size_mb" env:"TARGET_SIZE_MB"`
	OutputDir     string  `toml:"encode.output_dir" env:"OUTPUT_DIR"`
	Profile       string  `toml:"encode.profile" env:"PROFILE"`
	ProfilesFile  string  `toml:"profiles.file" env:"PROFILES_FILE"`
	HistoryDB     string  `toml:"history.database" env:"HISTORY_DATABASE"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Config:        "config.toml",
		BezelTopPx:    geometry.DefaultTopBezelPx,
		BezelBottomPx: geometry.DefaultBottomBezelPx,
		ProfilesFile:  "walls.toml",
		HistoryDB:     "debezel.db",
	}
}

// Bezel returns the configured bezel.
func (s Settings) Bezel() geometry.Bezel {
	return geometry.Bezel{TopPx: s.BezelTopPx, BottomPx: s.BezelBottomPx}
}

// TargetSize returns the target size, or nil when unset.
func (s Settings) TargetSize() *float64 {
	if s.TargetSizeMB <= 0 {
		return nil
	}
	v := s.TargetSizeMB
	return &v
}

// ParseSizeMB parses a target size in megabytes. Fractions are kept; an
// empty string is 0.
func ParseSizeMB(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid target size %q: want a non-negative number of MB", s)
	}
	return v, nil
}
