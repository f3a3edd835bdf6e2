// Package runfiles implements the resolver: discovery of a manifest file or
// a runfiles directory, and resolution of logical (workspace-relative) paths
// against whichever was discovered.
package runfiles

import (
	"strings"

	"github.com/malt3/runfiles-stub/internal/manifest"
	"github.com/malt3/runfiles-stub/internal/platform"
)

// Mode is a closed, two-shape tagged variant: the resolver is either
// manifest-based or directory-based, never both, set once at construction.
type Mode int

const (
	ModeManifest Mode = iota
	ModeDirectory
)

// Runfiles is the resolver. Its zero value is not meaningful; construct with
// Create. All fields are set once and never mutated afterward.
type Runfiles struct {
	mode Mode
	m    *manifest.Manifest

	baseDir string

	// manifestPath and dirPath are recorded for env export (spec §4.3): in
	// manifest mode discovered via the sibling ".runfiles_manifest" file,
	// the implied ".runfiles" directory is recorded too even though it was
	// never used for lookups.
	manifestPath     string
	haveManifestPath bool
	dirPath          string
	haveDirPath      bool
}

// Env is the minimal environment-reading surface Create needs, satisfied by
// internal/platform.Backend in production and a map in tests.
type Env interface {
	Getenv(name string) (string, bool)
}

// Create runs the discovery order from spec §4.3 and returns a resolver, or
// nil if no discovery path succeeds.
//
//   1. RUNFILES_MANIFEST_FILE env var, if loadable as a manifest.
//   2. RUNFILES_DIR env var, used as a base directory with no existence
//      check required by this function (callers needing the Windows
//      existence check pass a target that enforces it via dirExists).
//   3. "<exePath>.runfiles_manifest" sibling file, if loadable.
//   4. "<exePath>.runfiles" sibling directory, if dirExists reports it
//      exists.
func Create(target platform.Target, env Env, exePath string, dirExists func(string) bool, maxEntries, maxValueBytes int) *Runfiles {
	if mf, ok := env.Getenv("RUNFILES_MANIFEST_FILE"); ok && mf != "" {
		if m, err := manifest.Load(mf, maxEntries, maxValueBytes); err == nil && m != nil {
			return &Runfiles{mode: ModeManifest, m: m, manifestPath: mf, haveManifestPath: true}
		}
	}

	if dir, ok := env.Getenv("RUNFILES_DIR"); ok && dir != "" {
		if target.OS != platform.Windows || dirExists(dir) {
			return &Runfiles{mode: ModeDirectory, baseDir: dir, dirPath: dir, haveDirPath: true}
		}
	}

	if exePath != "" {
		siblingManifest := exePath + ".runfiles_manifest"
		if m, err := manifest.Load(siblingManifest, maxEntries, maxValueBytes); err == nil && m != nil {
			impliedDir := exePath + ".runfiles"
			return &Runfiles{
				mode: ModeManifest, m: m,
				manifestPath: siblingManifest, haveManifestPath: true,
				dirPath: impliedDir, haveDirPath: true,
			}
		}

		siblingDir := exePath + ".runfiles"
		if dirExists(siblingDir) {
			return &Runfiles{mode: ModeDirectory, baseDir: siblingDir, dirPath: siblingDir, haveDirPath: true}
		}
	}

	return nil
}

// Rlocation resolves a logical path. Absolute paths pass through unresolved
// (the second return is false, meaning "use the literal"); everything else
// is resolved against the manifest table or the base directory.
func (r *Runfiles) Rlocation(target platform.Target, logical string) (string, bool) {
	if isAbsolute(target, logical) {
		return "", false
	}
	if r == nil {
		return "", false
	}

	switch r.mode {
	case ModeManifest:
		value, ok := r.m.Lookup(logical)
		if !ok {
			return "", false
		}
		if target.OS == platform.Windows {
			value = strings.ReplaceAll(value, "/", `\`)
		}
		return value, true
	case ModeDirectory:
		sep := "/"
		rel := logical
		if target.OS == platform.Windows {
			sep = `\`
			rel = strings.ReplaceAll(rel, "/", `\`)
		}
		return r.baseDir + sep + rel, true
	default:
		return "", false
	}
}

// ManifestPath returns the recorded manifest path and whether one is known.
func (r *Runfiles) ManifestPath() (string, bool) {
	if r == nil {
		return "", false
	}
	return r.manifestPath, r.haveManifestPath
}

// DirPath returns the recorded runfiles directory path and whether one is
// known (set in directory mode, and in manifest mode when discovered via
// the sibling-manifest path that implies a sibling directory too).
func (r *Runfiles) DirPath() (string, bool) {
	if r == nil {
		return "", false
	}
	return r.dirPath, r.haveDirPath
}

// Mode reports which shape this resolver is. Mostly useful for tests and
// diagnostics; stub logic should prefer Rlocation/ManifestPath/DirPath.
func (r *Runfiles) Mode() Mode {
	if r == nil {
		return ModeDirectory
	}
	return r.mode
}

func isAbsolute(target platform.Target, p string) bool {
	if target.OS == platform.Windows {
		if strings.HasPrefix(p, `\\`) {
			return true
		}
		if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
			return true
		}
		return false
	}
	return strings.HasPrefix(p, "/")
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
