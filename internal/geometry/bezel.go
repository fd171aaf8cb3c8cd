package geometry

import (
	"errors"
	"fmt"
)

// Default bezel widths of the reference wall, in source pixels.
const (
	DefaultTopBezelPx    = 16
	DefaultBottomBezelPx = 21
)

// ErrInvalidBezel is returned (wrapped) by Bezel.Validate.
var ErrInvalidBezel = errors.New("invalid bezel spec")

// Bezel holds the bezel widths of a portrait panel. Once a panel sits in the
// horizontal row its physical top edge is the strip's left edge and its bottom
// edge is the strip's right edge.
type Bezel struct {
	TopPx    int `json:"top_px" toml:"top_px"`
	BottomPx int `json:"bottom_px" toml:"bottom_px"`
}

// DefaultBezel returns the reference wall's bezel widths.
func DefaultBezel() Bezel {
	return Bezel{TopPx: DefaultTopBezelPx, BottomPx: DefaultBottomBezelPx}
}

// Validate rejects negative widths and bezels that leave no visible panel.
func (b Bezel) Validate() error {
	if b.TopPx < 0 || b.BottomPx < 0 {
		return fmt.Errorf("%w: top and bottom bezel must be >= 0 (got %d, %d)", ErrInvalidBezel, b.TopPx, b.BottomPx)
	}
	if b.TopPx+b.BottomPx >= PanelWidth {
		return fmt.Errorf("%w: top + bottom bezel must be < %d (got %d)", ErrInvalidBezel, PanelWidth, b.TopPx+b.BottomPx)
	}
	return nil
}

// PanelCropWidth is the visible width of one panel after both bezels are removed.
func (b Bezel) PanelCropWidth() int {
	return PanelWidth - b.TopPx - b.BottomPx
}
