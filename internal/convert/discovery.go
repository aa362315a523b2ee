// Package convert drives external office converters and the CSV to Excel
// helper. LibreOffice discovery is a pure function over an injected
// environment; conversions run as an ordered list of strategies.
package convert

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"statement-pdf-service/pkg/errors"
)

// ErrNotFound is returned when no LibreOffice executable qualifies
var ErrNotFound = errors.New(errors.CategoryConversion, errors.CodeToolUnavailable, "LibreOffice executable not found")

// DiscoveryEnv is everything DiscoverLibreOffice may look at
type DiscoveryEnv struct {
	// GOOS selects executable names and default install locations
	GOOS string
	// Override is a configured executable path. When set, nothing else is tried.
	Override string
	// PathDirs are the entries of PATH, in order
	PathDirs []string
	// Candidates are extra full paths tried after PATH
	Candidates []string
	// ProgramFiles roots the Windows install locations
	ProgramFiles []string
	// Exists reports whether an executable file is present at a path
	Exists func(path string) bool
}

// SystemDiscoveryEnv captures the current process environment
func SystemDiscoveryEnv(override string) DiscoveryEnv {
	env := DiscoveryEnv{
		GOOS:     runtime.GOOS,
		Override: override,
		PathDirs: filepath.SplitList(os.Getenv("PATH")),
		Exists:   isExecutable,
	}
	for _, key := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if v := os.Getenv(key); v != "" {
			env.ProgramFiles = append(env.ProgramFiles, v)
		}
	}
	return env
}

// DiscoverLibreOffice returns the first LibreOffice executable found: the
// override, then PATH, then explicit candidates, then the OS install locations.
func DiscoverLibreOffice(env DiscoveryEnv) (string, error) {
	if env.Exists == nil {
		return "", ErrNotFound
	}

	if env.Override != "" {
		if env.Exists(env.Override) {
			return env.Override, nil
		}
		return "", ErrNotFound
	}

	for _, dir := range env.PathDirs {
		if dir == "" {
			continue
		}
		for _, name := range executableNames(env.GOOS) {
			if p := joinPath(env.GOOS, dir, name); env.Exists(p) {
				return p, nil
			}
		}
	}

	candidates := append([]string{}, env.Candidates...)
	candidates = append(candidates, DefaultLocations(env.GOOS, env.ProgramFiles)...)
	for _, p := range candidates {
		if env.Exists(p) {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// DefaultLocations lists the usual install paths of soffice for an OS
func DefaultLocations(goos string, programFiles []string) []string {
	switch goos {
	case "windows":
		roots := programFiles
		if len(roots) == 0 {
			roots = []string{`C:\Program Files`, `C:\Program Files (x86)`}
		}
		var out []string
		for _, root := range roots {
			out = append(out, strings.TrimRight(root, `\`)+`\LibreOffice\program\soffice.exe`)
		}
		return out
	case "darwin":
		return []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			"/opt/homebrew/bin/soffice",
			"/usr/local/bin/soffice",
		}
	default:
		return []string{
			"/usr/bin/soffice",
			"/usr/bin/libreoffice",
			"/usr/lib/libreoffice/program/soffice",
			"/opt/libreoffice/program/soffice",
			"/snap/bin/libreoffice",
		}
	}
}

func executableNames(goos string) []string {
	if goos == "windows" {
		return []string{"soffice.exe", "soffice.com"}
	}
	return []string{"soffice", "libreoffice"}
}

func joinPath(goos, dir, name string) string {
	if goos == "windows" {
		return strings.TrimRight(dir, `\`) + `\` + name
	}
	return path.Join(dir, name)
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0111 != 0
}
