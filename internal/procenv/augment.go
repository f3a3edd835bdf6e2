// Package procenv builds the augmented environment block the stub hands to
// the child process when runfiles-env export is enabled (spec §4.4). Raw
// environment enumeration itself is a platform.Backend responsibility (C7);
// this package only implements the injection/ordering/overflow policy, which
// is identical across all three OS families.
package procenv

import (
	"errors"
	"fmt"

	"github.com/malt3/runfiles-stub/internal/platform"
)

// Byte budgets for the augmented block, per spec §5 "Budgets". These bound
// the total size of keys+values+separators the augmented environment may
// occupy; BuildAugmented refuses to silently truncate past them.
const (
	MaxEnvBytesLinux   = 6 * 1024 * 1024
	MaxEnvBytesDarwin  = 1 * 1024 * 1024
	MaxEnvBytesWindows = 16 * 1024

	MaxEnvEntriesPOSIX   = 1024
	MaxEnvEntriesWindows = 256
)

// ErrOverflow is returned when the augmented environment would exceed the
// platform's entry count or byte budget. The contract is "complete or
// refuse": BuildAugmented never returns a partial result.
var ErrOverflow = errors.New("procenv: augmented environment exceeds platform budget")

// RunfilesPaths is the minimal view BuildAugmented needs of a resolved
// runfiles.Runfiles value, expressed as an interface to avoid a dependency
// on the runfiles package's concrete type from this low-level package.
type RunfilesPaths interface {
	ManifestPath() (string, bool)
	DirPath() (string, bool)
}

// injectedKeys are replaced wholesale in the augmented block, never merged
// with an inherited value.
var injectedKeys = map[string]bool{
	"RUNFILES_MANIFEST_FILE": true,
	"RUNFILES_DIR":           true,
	"JAVA_RUNFILES":          true,
}

// BuildAugmented emits, in order: RUNFILES_MANIFEST_FILE (iff a manifest
// path is known), RUNFILES_DIR and JAVA_RUNFILES (iff a directory path is
// known) — then every entry of base except any whose key is one of those
// three, in base's original order. It fails with ErrOverflow rather than
// drop anything if the result would exceed maxEntries/maxBytes.
func BuildAugmented(base []platform.EnvEntry, rf RunfilesPaths, maxEntries, maxBytes int) ([]platform.EnvEntry, error) {
	out := make([]platform.EnvEntry, 0, len(base)+3)

	if mf, ok := rf.ManifestPath(); ok {
		out = append(out, platform.EnvEntry{Key: "RUNFILES_MANIFEST_FILE", Value: mf})
	}
	if dir, ok := rf.DirPath(); ok {
		out = append(out, platform.EnvEntry{Key: "RUNFILES_DIR", Value: dir})
		out = append(out, platform.EnvEntry{Key: "JAVA_RUNFILES", Value: dir})
	}

	for _, e := range base {
		if injectedKeys[e.Key] {
			continue
		}
		out = append(out, e)
	}

	if len(out) > maxEntries {
		return nil, fmt.Errorf("%w: %d entries > %d max", ErrOverflow, len(out), maxEntries)
	}
	if size := totalBytes(out); size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d max", ErrOverflow, size, maxBytes)
	}
	return out, nil
}

func totalBytes(entries []platform.EnvEntry) int {
	total := 0
	for _, e := range entries {
		total += len(e.Key) + 1 + len(e.Value) + 1 // "KEY=VALUE\0"
	}
	return total
}

// BudgetFor returns the (maxEntries, maxBytes) pair for the given OS family,
// per spec §5's per-platform numbers.
func BudgetFor(os platform.OS) (maxEntries, maxBytes int) {
	switch os {
	case platform.Windows:
		return MaxEnvEntriesWindows, MaxEnvBytesWindows
	case platform.Darwin:
		return MaxEnvEntriesPOSIX, MaxEnvBytesDarwin
	default:
		return MaxEnvEntriesPOSIX, MaxEnvBytesLinux
	}
}
