// Package placeholder implements the byte-level contract between the
// finalizer and the stub template: fixed-size, uniquely-patterned regions
// embedded in the stub binary's data section, and the scan/patch primitives
// that locate and replace them.
package placeholder

import (
	"bytes"
	"errors"
	"fmt"
)

// Fixed slot sizes, bit-exact with the wire layout. Never resized.
const (
	ArgcSize           = 32
	TransformFlagsSize = 32
	ExportEnvSize      = 32
	ArgSize            = 256

	// MaxArgs is the maximum number of embedded ARG placeholders
	// (ARG0_PLACEHOLDER .. ARG9_PLACEHOLDER).
	MaxArgs = 10

	// SentinelPrefix marks any placeholder content that has not yet been
	// finalized. A stub whose ARGC slot still starts with this prefix
	// must refuse to run.
	SentinelPrefix = "@@RUNFILES_"
)

var (
	argcSentinel      = []byte("@@RUNFILES_ARGC@@")
	transformSentinel = []byte("@@RUNFILES_TRANSFORM_FLAGS@@")
	exportEnvSentinel = []byte("@@RUNFILES_EXPORT_ENV@@")
	argPattern        = bytes.Repeat([]byte{'@'}, ArgSize)
)

// Errors returned by Locate and ReplaceAt. Callers distinguish them with
// errors.Is; the finalizer and stub each map these to the distinct
// diagnostics required by spec §7.
var (
	ErrMetadataPlaceholderMissing = errors.New("placeholder: metadata sentinel not found")
	ErrArgPlaceholderMissing      = errors.New("placeholder: ARG placeholder not found")
	ErrValueTooLong               = errors.New("placeholder: replacement value exceeds slot size")
)

// Offsets records where every placeholder slot begins inside a template's
// byte buffer. Discovered once, before any patch is applied — patching ARG0
// in place would make ARG1's raw scan indistinguishable from surrounding
// already-patched bytes in a second pass.
type Offsets struct {
	Argc            int
	TransformFlags  int
	ExportEnv       int
	Args            [MaxArgs]int // offset of ARG<i>_PLACEHOLDER, -1 if not present
	ArgPlaceholders int          // count of distinct ARG placeholders found, 0..MaxArgs
}

// Locate scans template for all placeholder slots. The three metadata
// sentinels are found by first-match scan (each must occur exactly once);
// argument slots are found by non-overlapping n-th occurrence of a 256-byte
// all-'@' run, left to right.
func Locate(template []byte) (Offsets, error) {
	var off Offsets
	for i := range off.Args {
		off.Args[i] = -1
	}

	pos := bytes.Index(template, argcSentinel)
	if pos < 0 {
		return Offsets{}, fmt.Errorf("%w: ARGC", ErrMetadataPlaceholderMissing)
	}
	off.Argc = pos

	pos = bytes.Index(template, transformSentinel)
	if pos < 0 {
		return Offsets{}, fmt.Errorf("%w: TRANSFORM_FLAGS", ErrMetadataPlaceholderMissing)
	}
	off.TransformFlags = pos

	pos = bytes.Index(template, exportEnvSentinel)
	if pos < 0 {
		return Offsets{}, fmt.Errorf("%w: EXPORT_RUNFILES_ENV", ErrMetadataPlaceholderMissing)
	}
	off.ExportEnv = pos

	cursor := 0
	for i := 0; i < MaxArgs; i++ {
		rel := bytes.Index(template[cursor:], argPattern)
		if rel < 0 {
			break
		}
		off.Args[i] = cursor + rel
		cursor += rel + ArgSize
		off.ArgPlaceholders++
	}

	return off, nil
}

// NthArgOffset returns the offset of the i-th ARG placeholder (0-based),
// failing if fewer than i+1 were discovered by Locate.
func (o Offsets) NthArgOffset(i int) (int, error) {
	if i < 0 || i >= MaxArgs || o.Args[i] < 0 {
		return 0, fmt.Errorf("%w: ARG%d", ErrArgPlaceholderMissing, i)
	}
	return o.Args[i], nil
}

// ReplaceAt zero-fills buf[offset:offset+slotSize] then copies value into
// the front of that region. Fails without mutating buf if value does not
// fit.
func ReplaceAt(buf []byte, offset int, value []byte, slotSize int) error {
	if len(value) > slotSize {
		return fmt.Errorf("%w: %d bytes > %d byte slot", ErrValueTooLong, len(value), slotSize)
	}
	region := buf[offset : offset+slotSize]
	for i := range region {
		region[i] = 0
	}
	copy(region, value)
	return nil
}

// ReadCString reads buf[offset:offset+slotSize] and returns the bytes up to
// (not including) the first NUL. Used by the stub at startup to read back
// finalized metadata and argument slots.
func ReadCString(buf []byte, offset, slotSize int) []byte {
	region := buf[offset : offset+slotSize]
	if idx := bytes.IndexByte(region, 0); idx >= 0 {
		return region[:idx]
	}
	return region
}

// Unfinalized reports whether the given placeholder slot still carries the
// reserved sentinel prefix, meaning the template has not been patched.
func Unfinalized(slot []byte) bool {
	return bytes.HasPrefix(slot, []byte(SentinelPrefix))
}
