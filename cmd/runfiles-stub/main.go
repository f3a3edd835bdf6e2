// Command runfiles-stub is the finalized launcher binary's entry point. It
// reads its own on-disk image for the placeholder metadata a prior
// finalize-stub invocation patched in, resolves runfiles, and hands off to
// the real target program. Nearly everything it does lives in
// internal/stub; main wires the platform Backend and translates the
// resulting exit code or fatal error into process exit behavior.
package main

import (
	"fmt"
	"os"

	"github.com/malt3/runfiles-stub/internal/platform"
	"github.com/malt3/runfiles-stub/internal/stub"
)

func main() {
	backend := platform.NewBackend()
	target := platform.Host()

	exePath, err := os.Executable()
	if err != nil {
		// os.Executable is a best-effort OS query, not itself a placeholder
		// operation; fall back to argv[0] rather than fail startup over it.
		if len(os.Args) > 0 {
			exePath = os.Args[0]
		}
	}

	image, err := stub.ReadOwnImage(backend, exePath)
	if err != nil {
		fatalf(backend, "runfiles-stub: %v\n", err)
	}

	runtimeArgv := append([]string{exePath}, os.Args[1:]...)

	code, err := stub.Run(backend, target, image, runtimeArgv)
	if err != nil {
		fatalf(backend, "runfiles-stub: %v\n", err)
	}
	backend.Exit(code)
}

func fatalf(backend platform.Backend, format string, args ...any) {
	backend.WriteStderr([]byte(fmt.Sprintf(format, args...)))
	backend.Exit(1)
}
