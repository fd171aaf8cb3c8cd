package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// EngineName is the encoder binary name without platform suffix.
const EngineName = "ffmpeg"

// Locator finds the encoder executable. ok is false when none was found.
type Locator func() (path string, ok bool)

// Fixed returns a locator that accepts path only if it names a regular file.
func Fixed(path string) Locator {
	return func() (string, bool) {
		if strings.TrimSpace(path) == "" {
			return "", false
		}
		if !isFile(path) {
			return "", false
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return path, true
		}
		return abs, true
	}
}

// LookPath returns a locator that searches PATH for name.
func LookPath(name string) Locator {
	return func() (string, bool) {
		p, err := exec.LookPath(name)
		if err != nil {
			return "", false
		}
		return p, true
	}
}

// BundleDirs returns a locator that checks each dir for the engine binary.
func BundleDirs(dirs ...string) Locator {
	return func() (string, bool) {
		for _, dir := range dirs {
			for _, name := range binaryNames(EngineName) {
				candidate := filepath.Join(dir, name)
				if isFile(candidate) {
					if abs, err := filepath.Abs(candidate); err == nil {
						return abs, true
					}
					return candidate, true
				}
			}
		}
		return "", false
	}
}

// Chain returns the first hit among locators.
func Chain(locators ...Locator) Locator {
	return func() (string, bool) {
		for _, l := range locators {
			if l == nil {
				continue
			}
			if p, ok := l(); ok {
				return p, true
			}
		}
		return "", false
	}
}

// ExecutableBundleDirs lists directories bundled next to the running
// executable, in lookup order: an application bundle's Frameworks and
// Resources, then a bin directory beside the binary.
func ExecutableBundleDirs() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	return []string{
		filepath.Join(dir, "..", "Frameworks", "bin"),
		filepath.Join(dir, "..", "Resources", "bin"),
		filepath.Join(dir, "bin"),
	}
}

// DefaultLocator tries the configured path, then bundled copies, then PATH.
func DefaultLocator(configured string) Locator {
	return Chain(
		Fixed(configured),
		BundleDirs(ExecutableBundleDirs()...),
		LookPath(EngineName),
	)
}

// Available reports whether l finds an engine.
func Available(l Locator) bool {
	if l == nil {
		return false
	}
	_, ok := l()
	return ok
}

// ProbePath returns the ffprobe binary that ships beside engine, or plain
// "ffprobe" for PATH lookup when there is no sibling.
func ProbePath(engine string) string {
	if engine != "" {
		dir := filepath.Dir(engine)
		for _, name := range binaryNames("ffprobe") {
			candidate := filepath.Join(dir, name)
			if isFile(candidate) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

func binaryNames(name string) []string {
	if runtime.GOOS == "windows" {
		return []string{name + ".exe", name}
	}
	return []string{name}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
