package encode

import (
	"path/filepath"
	"strings"
)

// Output naming.
const (
	OutputSuffix  = "_bezel_removed"
	DefaultExt    = ".mp4"
	passLogSuffix = "_2pass"
)

// ResolveOutputPath returns <dir>/<stem>_bezel_removed<ext>, where dir is
// outputDir or the input's directory when empty, and ext is the input's
// extension or .mp4 when it has none.
func ResolveOutputPath(input, outputDir string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = DefaultExt
	}

	dir := outputDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(input)
	}
	out := filepath.Join(dir, stem+OutputSuffix+ext)
	if abs, err := filepath.Abs(out); err == nil {
		return abs
	}
	return out
}

// IsOutputName reports whether path looks like a file ResolveOutputPath
// produced.
func IsOutputName(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), OutputSuffix)
}

// PassLogPrefix returns the two-pass statistics prefix for an output file:
// <outdir>/<outstem>_2pass.
func PassLogPrefix(output string) string {
	dir := filepath.Dir(output)
	base := filepath.Base(output)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+passLogSuffix)
}
