//go:build linux || darwin

package platform

import (
	"bytes"
	"fmt"
	"os/exec"
)

// parseNulSeparated splits a NUL-delimited "key=value" block (the shape of
// /proc/self/environ and of libc's environ vector once joined) into ordered
// entries.
func parseNulSeparated(buf []byte) []EnvEntry {
	var entries []EnvEntry
	for _, raw := range bytes.Split(buf, []byte{0}) {
		if len(raw) == 0 {
			continue
		}
		if idx := bytes.IndexByte(raw, '='); idx >= 0 {
			entries = append(entries, EnvEntry{Key: string(raw[:idx]), Value: string(raw[idx+1:])})
		}
	}
	return entries
}

// spawnAndWaitPOSIX is not part of the real POSIX handoff path (spec §4.5:
// POSIX replaces its own image with execve and never waits on a child). It
// runs path as a child process through os/exec, waits for it, and returns
// its exit code.
func spawnAndWaitPOSIX(path string, argv []string, envp []string) (int, error) {
	cmd := exec.Command(path)
	if len(argv) > 0 {
		cmd.Args = argv
	}
	cmd.Env = envp
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("platform: spawn %s: %w", path, err)
}
