// Package profiles stores named wall setups: bezel widths plus an optional
// target size, kept in a TOML file next to the config.
package profiles

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/smazurov/debezel/internal/geometry"
)

// Errors returned by the store.
var (
	ErrNotFound    = errors.New("profile not found")
	ErrInvalidName = errors.New("invalid profile name")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Profile is one wall setup.
type Profile struct {
	Name         string  `toml:"-" json:"name" doc:"Profile name"`
	Description  string  `toml:"description,omitempty" json:"description,omitempty" doc:"Free-form note"`
	TopPx        int     `toml:"top_px" json:"top_px" doc:"Top bezel width in source pixels"`
	BottomPx     int     `toml:"bottom_px" json:"bottom_px" doc:"Bottom bezel width in source pixels"`
	TargetSizeMB float64 `toml:"target_size_mb,omitempty" json:"target_size_mb,omitempty" doc:"Target output size in MB, 0 for the default bitrate"`
}

// Bezel returns the profile's bezel.
func (p Profile) Bezel() geometry.Bezel {
	return geometry.Bezel{TopPx: p.TopPx, BottomPx: p.BottomPx}
}

// TargetSize returns the target size, or nil when unset.
func (p Profile) TargetSize() *float64 {
	if p.TargetSizeMB <= 0 {
		return nil
	}
	v := p.TargetSizeMB
	return &v
}

// Validate checks the name and bezel.
func (p Profile) Validate() error {
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("%w: %q (lowercase letters, digits, '-' and '_')", ErrInvalidName, p.Name)
	}
	if p.TargetSizeMB < 0 {
		return fmt.Errorf("profile %s: target size must not be negative", p.Name)
	}
	if err := p.Bezel().Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return nil
}

// DefaultName names the built-in reference wall profile.
const DefaultName = "default"

// Default is the reference wall with the default bitrate.
func Default() Profile {
	b := geometry.DefaultBezel()
	return Profile{
		Name:        DefaultName,
		Description: "Reference 4-panel wall",
		TopPx:       b.TopPx,
		BottomPx:    b.BottomPx,
	}
}

// SizePreset is a named target size. Zero means no limit.
type SizePreset struct {
	Label  string  `json:"label" doc:"Display label"`
	SizeMB float64 `json:"size_mb" doc:"Target size in MB, 0 for no limit"`
}

// SizePresets are the target sizes offered to users.
func SizePresets() []SizePreset {
	return []SizePreset{
		{Label: "No limit", SizeMB: 0},
		{Label: "100 MB", SizeMB: 100},
		{Label: "200 MB", SizeMB: 200},
		{Label: "500 MB", SizeMB: 500},
	}
}

func sortedNames(m map[string]Profile) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overrides are per-run values that take precedence over a profile. Nil
// fields keep the profile's value.
type Overrides struct {
	TopPx        *int
	BottomPx     *int
	TargetSizeMB *float64
}

// With returns p with o applied. A zero or negative target size override
// clears the profile's target size.
func (p Profile) With(o Overrides) Profile {
	if o.TopPx != nil {
		p.TopPx = *o.TopPx
	}
	if o.BottomPx != nil {
		p.BottomPx = *o.BottomPx
	}
	if o.TargetSizeMB != nil {
		p.TargetSizeMB = max(*o.TargetSizeMB, 0)
	}
	return p
}
