// Package stub implements C5: the platform-independent launcher runtime —
// parsing the placeholder metadata embedded in the stub's own image,
// orchestrating runfiles discovery and resolution, assembling the child's
// argv/envp, and handing off to the real target program.
//
// Per SPEC_FULL.md §0, the whole of a launcher invocation's state lives in
// one Runtime value built on main's stack — no package-level mutable state —
// which is this package's model of the original's "static process-lifetime
// storage" under Go's allocator instead of a literal freestanding one.
package stub

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/malt3/runfiles-stub/internal/manifest"
	"github.com/malt3/runfiles-stub/internal/placeholder"
	"github.com/malt3/runfiles-stub/internal/platform"
	"github.com/malt3/runfiles-stub/internal/procenv"
	"github.com/malt3/runfiles-stub/internal/runfiles"
)

// Error kinds from spec §7. Every one maps to exactly one fatal exit-1
// diagnostic; there is no retry or partial recovery anywhere in this package.
var (
	ErrTemplateUnfinalized = errors.New("stub: this is a template stub runner, not a finalized launcher")
	ErrTemplateCorrupt     = errors.New("stub: template metadata is corrupt")
	ErrRunfilesUnavailable = errors.New("stub: runfiles could not be discovered")
	ErrArgvOverflow        = errors.New("stub: too many arguments")
	ErrHandoffFailure      = errors.New("stub: failed to hand off to child process")
)

// MaxTotalArgv is the hard cap on argv entries handed to the child (spec §5).
const MaxTotalArgv = 128

// Runtime holds everything discovered during one launcher startup.
type Runtime struct {
	Target platform.Target

	argc           int
	transformFlags uint32
	exportEnv      bool

	embeddedArgs [placeholder.MaxArgs]string
}

// ParseMetadata implements steps 1-4 of the startup sequence (spec §4.5): it
// reads the three metadata placeholders and the embedded argument slots out
// of image (the stub's own on-disk bytes, located via placeholder.Locate),
// and fails closed on any unfinalized or malformed content.
func ParseMetadata(target platform.Target, image []byte) (*Runtime, error) {
	off, err := placeholder.Locate(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateCorrupt, err)
	}

	argcSlot := placeholder.ReadCString(image, off.Argc, placeholder.ArgcSize)
	if placeholder.Unfinalized(argcSlot) {
		return nil, ErrTemplateUnfinalized
	}
	if len(argcSlot) == 0 {
		return nil, fmt.Errorf("%w: empty ARGC", ErrTemplateCorrupt)
	}
	argc, err := strconv.Atoi(string(argcSlot))
	if err != nil || argc < 1 || argc > placeholder.MaxArgs {
		return nil, fmt.Errorf("%w: ARGC out of range [1,10]: %q", ErrTemplateCorrupt, argcSlot)
	}

	flagsSlot := placeholder.ReadCString(image, off.TransformFlags, placeholder.TransformFlagsSize)
	var transformFlags uint32 = 0xFFFFFFFF
	if len(flagsSlot) > 0 && !placeholder.Unfinalized(flagsSlot) {
		v, err := strconv.ParseUint(string(flagsSlot), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: TRANSFORM_FLAGS not decimal: %q", ErrTemplateCorrupt, flagsSlot)
		}
		transformFlags = uint32(v)
	}

	exportSlot := placeholder.ReadCString(image, off.ExportEnv, placeholder.ExportEnvSize)
	exportEnv := true
	if !placeholder.Unfinalized(exportSlot) {
		exportEnv = string(exportSlot) != "0"
	}

	rt := &Runtime{Target: target, argc: argc, transformFlags: transformFlags, exportEnv: exportEnv}

	for i := 0; i < argc; i++ {
		argOff, err := off.NthArgOffset(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateCorrupt, err)
		}
		slot := placeholder.ReadCString(image, argOff, placeholder.ArgSize)
		if len(slot) == 0 {
			return nil, fmt.Errorf("%w: empty ARG%d", ErrTemplateCorrupt, i)
		}
		rt.embeddedArgs[i] = string(slot)
	}

	return rt, nil
}

// NeedRunfiles reports whether runfiles discovery is required: any embedded
// argument is marked for transform, or the environment must be exported.
func (rt *Runtime) NeedRunfiles() bool {
	mask := rt.transformFlags & ((uint32(1) << uint(rt.argc)) - 1)
	return mask != 0 || rt.exportEnv
}

func (rt *Runtime) transformBit(i int) bool {
	return rt.transformFlags&(1<<uint(i)) != 0
}

// ResolveEmbedded resolves each embedded argument through rf when its
// transform bit is set and rf is non-nil; otherwise the literal is used
// unchanged (spec §4.5 step 7, property P7).
func (rt *Runtime) ResolveEmbedded(rf *runfiles.Runfiles) []string {
	resolved := make([]string, rt.argc)
	for i := 0; i < rt.argc; i++ {
		literal := rt.embeddedArgs[i]
		if rf != nil && rt.transformBit(i) {
			if real, ok := rf.Rlocation(rt.Target, literal); ok {
				resolved[i] = real
				continue
			}
		}
		resolved[i] = literal
	}
	return resolved
}

// BuildArgv concatenates the resolved embedded arguments with the runtime
// arguments (runtimeArgv with argv[0] dropped), enforcing the total-argv cap
// (spec §4.5 step 8, §5 budget).
func BuildArgv(resolvedEmbedded []string, runtimeArgv []string) ([]string, error) {
	var tail []string
	if len(runtimeArgv) > 1 {
		tail = runtimeArgv[1:]
	}
	total := len(resolvedEmbedded) + len(tail)
	if total > MaxTotalArgv {
		return nil, fmt.Errorf("%w: %d > %d", ErrArgvOverflow, total, MaxTotalArgv)
	}
	argv := make([]string, 0, total)
	argv = append(argv, resolvedEmbedded...)
	argv = append(argv, tail...)
	return argv, nil
}

// BuildEnvp returns the environment to hand to the child: the augmented
// block (spec §4.4) if exportEnv is set and rf is non-nil, otherwise base
// unchanged.
func (rt *Runtime) BuildEnvp(base []platform.EnvEntry, rf *runfiles.Runfiles) ([]platform.EnvEntry, error) {
	if !rt.exportEnv || rf == nil {
		return base, nil
	}
	maxEntries, maxBytes := procenv.BudgetFor(rt.Target.OS)
	return procenv.BuildAugmented(base, rf, maxEntries, maxBytes)
}

// DiscoverRunfiles wraps runfiles.Create with this Runtime's discovery
// requirements, returning ErrRunfilesUnavailable if NeedRunfiles is true but
// nothing could be discovered.
func (rt *Runtime) DiscoverRunfiles(env runfiles.Env, exePath string, dirExists func(string) bool, maxEntries, maxValueBytes int) (*runfiles.Runfiles, error) {
	if !rt.NeedRunfiles() {
		return nil, nil
	}
	rf := runfiles.Create(rt.Target, env, exePath, dirExists, maxEntries, maxValueBytes)
	if rf == nil {
		return nil, ErrRunfilesUnavailable
	}
	return rf, nil
}

// ManifestLimits returns the (maxEntries, maxValueBytes) pair for this
// Runtime's target OS, per spec §3.
func (rt *Runtime) ManifestLimits() (maxEntries, maxValueBytes int) {
	if rt.Target.OS == platform.Windows {
		return manifest.MaxEntriesWindows, manifest.MaxValueBytesWindows
	}
	return manifest.MaxEntriesPOSIX, manifest.MaxValueBytesPOSIX
}

func envpStrings(entries []platform.EnvEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key + "=" + e.Value
	}
	return out
}

// Run executes the full startup sequence (spec §4.5 / the state machine of
// §4.6) against backend and returns only on failure — on a successful POSIX
// handoff, backend.Exec replaces the process image and control never
// returns here; on Windows the process's intended exit code is returned
// for main to pass to backend.Exit.
func Run(backend platform.Backend, target platform.Target, image []byte, runtimeArgv []string) (exitCode int, err error) {
	rt, err := ParseMetadata(target, image)
	if err != nil {
		return 1, err
	}

	exePath := ""
	if len(runtimeArgv) > 0 {
		exePath = runtimeArgv[0]
	}

	maxEntries, maxValueBytes := rt.ManifestLimits()
	rf, err := rt.DiscoverRunfiles(backend, exePath, backend.Exists, maxEntries, maxValueBytes)
	if err != nil {
		return 1, err
	}

	resolved := rt.ResolveEmbedded(rf)
	argv, err := BuildArgv(resolved, runtimeArgv)
	if err != nil {
		return 1, err
	}

	base, err := backend.Environ()
	if err != nil {
		return 1, err
	}
	envEntries, err := rt.BuildEnvp(base, rf)
	if err != nil {
		return 1, err
	}
	envp := envpStrings(envEntries)

	if target.OS == platform.Windows {
		code, err := backend.SpawnAndWait(argv[0], argv, envp)
		if err != nil {
			return 1, fmt.Errorf("%w: %v", ErrHandoffFailure, err)
		}
		return code, nil
	}

	if err := backend.Exec(argv[0], argv, envp); err != nil {
		return 1, fmt.Errorf("%w: %v", ErrHandoffFailure, err)
	}
	return 0, nil // unreachable on POSIX success
}

// ReadOwnImage reads the stub's own on-disk bytes through backend, the
// portable stand-in for "read embedded placeholder regions as static data"
// (SPEC_FULL.md §0): Go has no idiomatic way to declare a fixed-offset
// custom data section without assembly, so the stub locates its placeholder
// region by re-scanning its executable file with the exact same
// placeholder.Locate algorithm the finalizer used to patch it.
func ReadOwnImage(backend platform.Backend, path string) ([]byte, error) {
	fd, err := backend.OpenRead(path)
	if err != nil {
		return nil, fmt.Errorf("stub: open own image %s: %w", path, err)
	}
	defer backend.Close(fd)

	var buf bytes.Buffer
	chunk := make([]byte, 1<<20)
	for {
		n, err := backend.Read(fd, chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	return buf.Bytes(), nil
}
