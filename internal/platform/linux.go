//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// linuxBackend implements Backend's file I/O, environment enumeration,
// execve and exit with direct golang.org/x/sys/unix calls — the idiomatic-Go
// analog of the original's inline-asm syscalls (§0 of SPEC_FULL.md), with no
// libc. Getenv uses os.LookupEnv and SpawnAndWait uses os/exec.
type linuxBackend struct{}

// NewBackend returns the Linux Backend implementation.
func NewBackend() Backend { return linuxBackend{} }

func (linuxBackend) WriteStderr(p []byte) (int, error) {
	return unix.Write(int(os.Stderr.Fd()), p)
}

func (linuxBackend) OpenRead(path string) (uintptr, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func (linuxBackend) Read(fd uintptr, buf []byte) (int, error) {
	return unix.Read(int(fd), buf)
}

func (linuxBackend) Close(fd uintptr) error {
	return unix.Close(int(fd))
}

func (linuxBackend) Exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

func (linuxBackend) Getenv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Environ reads /proc/self/environ directly, the same source the original
// Linux backend reads via raw read(2) on the fd opened at startup — mirrored
// here via unix.Open/unix.Read rather than os.Environ(), which would read it
// from the Go runtime's already-parsed copy instead of the kernel file.
func (linuxBackend) Environ() ([]EnvEntry, error) {
	const ceiling = 6 * 1024 * 1024 // matches kernel ARG_MAX budget, spec §5

	fd, err := unix.Open("/proc/self/environ", unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("platform: open /proc/self/environ: %w", err)
	}
	defer unix.Close(fd)

	buf := make([]byte, ceiling)
	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			return nil, fmt.Errorf("platform: read /proc/self/environ: %w", err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total == len(buf) {
		return nil, errOverflow(ceiling)
	}
	return parseNulSeparated(buf[:total]), nil
}

func (linuxBackend) Exec(path string, argv []string, envp []string) error {
	return unix.Exec(path, argv, envp)
}

func (linuxBackend) SpawnAndWait(path string, argv []string, envp []string) (int, error) {
	return spawnAndWaitPOSIX(path, argv, envp)
}

func (linuxBackend) Exit(code int) {
	unix.Exit(code)
}
