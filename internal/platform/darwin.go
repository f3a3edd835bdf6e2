//go:build darwin

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// darwinBackend implements Backend for macOS. Spec §4.6 notes Darwin
// forbids raw syscalls from third-party binaries, so this backend goes
// through golang.org/x/sys/unix's libc-calling wrappers (open/read/write/
// close/access/execve) instead of inline assembly — the permitted path the
// original's macos.rs backend also takes.
type darwinBackend struct{}

// NewBackend returns the Darwin Backend implementation.
func NewBackend() Backend { return darwinBackend{} }

func (darwinBackend) WriteStderr(p []byte) (int, error) {
	return unix.Write(int(os.Stderr.Fd()), p)
}

func (darwinBackend) OpenRead(path string) (uintptr, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func (darwinBackend) Read(fd uintptr, buf []byte) (int, error) {
	return unix.Read(int(fd), buf)
}

func (darwinBackend) Close(fd uintptr) error {
	return unix.Close(int(fd))
}

func (darwinBackend) Exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

func (darwinBackend) Getenv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Environ walks the process's environment vector. On Darwin there is no
// /proc to read; this is the Go-idiomatic equivalent of the original's
// walk over the libc-provided `environ` pointer, which the Go runtime
// already parses from envp at process startup.
func (darwinBackend) Environ() ([]EnvEntry, error) {
	const ceiling = 1 * 1024 * 1024 // spec §5 macOS budget

	raw := os.Environ()
	size := 0
	entries := make([]EnvEntry, 0, len(raw))
	for _, kv := range raw {
		size += len(kv) + 1
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				entries = append(entries, EnvEntry{Key: kv[:i], Value: kv[i+1:]})
				break
			}
		}
	}
	if size > ceiling {
		return nil, errOverflow(ceiling)
	}
	return entries, nil
}

func (darwinBackend) Exec(path string, argv []string, envp []string) error {
	return unix.Exec(path, argv, envp)
}

func (darwinBackend) SpawnAndWait(path string, argv []string, envp []string) (int, error) {
	return spawnAndWaitPOSIX(path, argv, envp)
}

func (darwinBackend) Exit(code int) {
	unix.Exit(code)
}
