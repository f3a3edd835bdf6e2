// Package finalize implements C6: patching a copy of a stub template with
// caller-supplied argv, transform mask, and export-env flag.
package finalize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/malt3/runfiles-stub/internal/placeholder"
)

// ErrOutputWouldOverwriteTemplate guards against finalizing a template onto
// itself.
var ErrOutputWouldOverwriteTemplate = errors.New("finalize: output path would overwrite template")

// Request bundles finalize's inputs (spec §4.1).
type Request struct {
	TemplatePath  string
	OutputPath    string // empty means "write to stdout"
	Argv          []string
	TransformMask uint32
	ExportEnv     bool
}

// Result is returned on success, mainly for the CLI's verbose logging.
type Result struct {
	Bytes       []byte
	Offsets     placeholder.Offsets
	WroteStdout bool
}

// Validate checks Request-level preconditions independent of the template
// bytes: argv size and per-argument length (spec §4.1 "Inputs").
func (r Request) Validate() error {
	if len(r.Argv) == 0 {
		return errors.New("finalize: at least one argument (argv[0]) is required")
	}
	if len(r.Argv) > placeholder.MaxArgs {
		return fmt.Errorf("finalize: at most %d arguments supported", placeholder.MaxArgs)
	}
	for i, a := range r.Argv {
		if len(a) > placeholder.ArgSize {
			return fmt.Errorf("%w: argv[%d] is %d bytes > %d byte slot", placeholder.ErrValueTooLong, i, len(a), placeholder.ArgSize)
		}
	}
	return nil
}

// guardOutputNotTemplate implements spec §4.1's overwrite guard: when both
// paths resolve, they must not name the same file.
func guardOutputNotTemplate(templatePath, outputPath string) error {
	if outputPath == "" {
		return nil
	}
	templateAbs, errT := filepath.Abs(templatePath)
	outputAbs, errO := filepath.Abs(outputPath)
	if errT != nil || errO != nil {
		return nil // unresolvable paths cannot collide; let the OS surface real errors later
	}
	templateReal, errT := filepath.EvalSymlinks(templateAbs)
	if errT != nil {
		templateReal = templateAbs
	}
	outputReal, errO := filepath.EvalSymlinks(outputAbs)
	if errO != nil {
		outputReal = outputAbs
	}
	if templateReal == outputReal {
		return ErrOutputWouldOverwriteTemplate
	}
	return nil
}

// Finalize runs the full patch algorithm (spec §4.1 steps 1-6) and, unless
// OutputPath is empty, writes the result to disk with mode 0o755 on POSIX.
func Finalize(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if err := guardOutputNotTemplate(req.TemplatePath, req.OutputPath); err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(req.TemplatePath)
	if err != nil {
		return Result{}, fmt.Errorf("finalize: read template %s: %w", req.TemplatePath, err)
	}

	patched, offsets, err := Patch(data, req.Argv, req.TransformMask, req.ExportEnv)
	if err != nil {
		return Result{}, err
	}

	if req.OutputPath == "" {
		if _, err := os.Stdout.Write(patched); err != nil {
			return Result{}, fmt.Errorf("finalize: write stdout: %w", err)
		}
		return Result{Bytes: patched, Offsets: offsets, WroteStdout: true}, nil
	}

	if err := os.WriteFile(req.OutputPath, patched, 0o644); err != nil {
		return Result{}, fmt.Errorf("finalize: write output %s: %w", req.OutputPath, err)
	}
	if err := os.Chmod(req.OutputPath, 0o755); err != nil {
		return Result{}, fmt.Errorf("finalize: chmod output %s: %w", req.OutputPath, err)
	}
	return Result{Bytes: patched, Offsets: offsets}, nil
}

// Patch performs the in-memory patch: locate every placeholder offset
// before any write (mandatory pre-scan, spec §4.1 step 4 and DESIGN NOTES
// §9), then patch metadata followed by each argument slot in order. template
// is never mutated; a fresh copy is returned.
func Patch(template []byte, argv []string, transformMask uint32, exportEnv bool) ([]byte, placeholder.Offsets, error) {
	offsets, err := placeholder.Locate(template)
	if err != nil {
		return nil, placeholder.Offsets{}, err
	}
	if offsets.ArgPlaceholders < len(argv) {
		return nil, placeholder.Offsets{}, fmt.Errorf("%w: need %d ARG slots, template has %d",
			placeholder.ErrArgPlaceholderMissing, len(argv), offsets.ArgPlaceholders)
	}

	out := append([]byte(nil), template...)

	if err := placeholder.ReplaceAt(out, offsets.Argc, []byte(strconv.Itoa(len(argv))), placeholder.ArgcSize); err != nil {
		return nil, placeholder.Offsets{}, err
	}
	if err := placeholder.ReplaceAt(out, offsets.TransformFlags, []byte(strconv.FormatUint(uint64(transformMask), 10)), placeholder.TransformFlagsSize); err != nil {
		return nil, placeholder.Offsets{}, err
	}
	exportVal := "0"
	if exportEnv {
		exportVal = "1"
	}
	if err := placeholder.ReplaceAt(out, offsets.ExportEnv, []byte(exportVal), placeholder.ExportEnvSize); err != nil {
		return nil, placeholder.Offsets{}, err
	}

	for i, a := range argv {
		argOffset, err := offsets.NthArgOffset(i)
		if err != nil {
			return nil, placeholder.Offsets{}, err
		}
		if err := placeholder.ReplaceAt(out, argOffset, []byte(a), placeholder.ArgSize); err != nil {
			return nil, placeholder.Offsets{}, err
		}
	}

	return out, offsets, nil
}

// TransformMaskFromIndices builds a bitmask from a list of argument indices
// to transform, as supplied by the finalizer's comma-separated --transform
// flag.
func TransformMaskFromIndices(indices []int) (uint32, error) {
	var mask uint32
	for _, i := range indices {
		if i < 0 || i >= placeholder.MaxArgs {
			return 0, fmt.Errorf("finalize: --transform index %d out of range [0,%d)", i, placeholder.MaxArgs)
		}
		mask |= 1 << uint(i)
	}
	return mask, nil
}
