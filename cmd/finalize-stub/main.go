// Command finalize-stub patches a copy of a stub template with the
// caller-supplied argv, transform mask, and export-env flag, producing a
// concrete launcher binary. Its CLI surface (flags, help, verbose logging)
// is an external collaborator per spec §1 — the patching itself lives in
// internal/finalize.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	flag "github.com/ogier/pflag"
	"github.com/xyproto/env/v2"

	"github.com/malt3/runfiles-stub/internal/finalize"
)

var (
	templatePath  = flag.String("template", "", "path to the stub template (required)")
	outputPath    = flag.String("output", "", "path to write the finalized launcher (default: stdout)")
	transformFlag = flag.String("transform", "", "comma-separated argument indices to transform, 0-9")
	exportEnvFlag = flag.Bool("export-runfiles-env", exportEnvDefault(), "propagate RUNFILES_* variables to the child")
)

// exportEnvDefault defaults to true unless RUNFILES_STUB_EXPORT_ENV_DEFAULT is
// set in the environment, in which case env.Bool's own parsing decides it.
// env.Bool takes no fallback argument (unlike env.Int/env.Str) and itself
// defaults to false, so the env-var-absent case is handled before calling it.
func exportEnvDefault() bool {
	if _, ok := os.LookupEnv("RUNFILES_STUB_EXPORT_ENV_DEFAULT"); ok {
		return env.Bool("RUNFILES_STUB_EXPORT_ENV_DEFAULT")
	}
	return true
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if *templatePath == "" {
		glog.Errorf("--template is required")
		os.Exit(1)
	}

	indices, err := parseTransformIndices(*transformFlag)
	if err != nil {
		glog.Errorf("invalid --transform: %v", err)
		os.Exit(1)
	}
	mask, err := finalize.TransformMaskFromIndices(indices)
	if err != nil {
		glog.Errorf("%v", err)
		os.Exit(1)
	}

	argv := flag.Args()
	glog.V(1).Infof("finalizing %s -> %q with %d embedded args, transform=0b%b, export_env=%v",
		*templatePath, outputDescription(*outputPath), len(argv), mask, *exportEnvFlag)

	result, err := finalize.Finalize(finalize.Request{
		TemplatePath:  *templatePath,
		OutputPath:    *outputPath,
		Argv:          argv,
		TransformMask: mask,
		ExportEnv:     *exportEnvFlag,
	})
	if err != nil {
		glog.Errorf("finalize failed: %v", err)
		os.Exit(1)
	}

	for i, a := range argv {
		glog.V(1).Infof("replaced ARG%d with: %s", i, a)
	}
	if !result.WroteStdout {
		glog.V(1).Infof("wrote %d bytes to %s", len(result.Bytes), *outputPath)
	}
}

func outputDescription(path string) string {
	if path == "" {
		return "<stdout>"
	}
	return path
}

// parseTransformIndices accepts the comma-separated --transform 0,2 form.
func parseTransformIndices(raw string) ([]int, error) {
	var indices []int
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", field)
		}
		indices = append(indices, n)
	}
	return indices, nil
}
