//go:build windows

package platform

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsBackend implements Backend using Win32 calls from kernel32.dll
// only, per spec §4.6 — no shell32, no CRT.
type windowsBackend struct{}

// NewBackend returns the Windows Backend implementation.
func NewBackend() Backend { return windowsBackend{} }

func (windowsBackend) WriteStderr(p []byte) (int, error) {
	var written uint32
	err := windows.WriteFile(windows.Handle(os.Stderr.Fd()), p, &written, nil)
	return int(written), err
}

func (windowsBackend) OpenRead(path string) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(p, windows.GENERIC_READ, windows.FILE_SHARE_READ, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (windowsBackend) Read(fd uintptr, buf []byte) (int, error) {
	var read uint32
	err := windows.ReadFile(windows.Handle(fd), buf, &read, nil)
	return int(read), err
}

func (windowsBackend) Close(fd uintptr) error {
	return windows.CloseHandle(windows.Handle(fd))
}

// Exists probes for existence "with backup semantics" (spec §4.3): opening
// with FILE_FLAG_BACKUP_SEMANTICS lets this succeed for directories too, not
// just regular files.
func (windowsBackend) Exists(path string) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	h, err := windows.CreateFile(p, 0, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return false
	}
	windows.CloseHandle(h)
	return true
}

func (windowsBackend) Getenv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Environ calls GetEnvironmentStringsW: entries are UTF-16, NUL-separated,
// terminated by a double-NUL.
func (windowsBackend) Environ() ([]EnvEntry, error) {
	const ceiling = 16 * 1024 // spec §5 Windows budget

	block, err := windows.GetEnvironmentStrings()
	if err != nil {
		return nil, fmt.Errorf("platform: GetEnvironmentStringsW: %w", err)
	}
	defer windows.FreeEnvironmentStrings(block)

	var entries []EnvEntry
	size := 0
	p := unsafe.Pointer(block)
	for {
		u := (*uint16)(p)
		if *u == 0 {
			break
		}
		s := windows.UTF16PtrToString(u)
		size += (len(s) + 1) * 2
		if size > ceiling {
			return nil, errOverflow(ceiling)
		}
		if idx := indexRune(s, '='); idx > 0 {
			entries = append(entries, EnvEntry{Key: s[:idx], Value: s[idx+1:]})
		}
		p = unsafe.Add(p, (len(s)+1)*2)
	}
	return entries, nil
}

func indexRune(s string, r rune) int {
	for i, c := range s {
		if c == r {
			return i
		}
	}
	return -1
}

func (windowsBackend) Exec(path string, argv []string, envp []string) error {
	return fmt.Errorf("platform: Exec (execve) is not available on windows; use SpawnAndWait")
}

// SpawnAndWait implements spec §4.5's Windows handoff: CreateProcessW with
// CREATE_UNICODE_ENVIRONMENT when an augmented block is in use, followed by
// WaitForSingleObject(INFINITE) and GetExitCodeProcess.
func (windowsBackend) SpawnAndWait(path string, argv []string, envp []string) (int, error) {
	cmdLine, err := windows.UTF16PtrFromString(buildCommandLine(argv))
	if err != nil {
		return -1, err
	}
	appName, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return -1, err
	}

	var envBlock *uint16
	var flags uint32
	if len(envp) > 0 {
		envBlock, err = buildEnvBlock(envp)
		if err != nil {
			return -1, err
		}
		flags = windows.CREATE_UNICODE_ENVIRONMENT
	}

	var si windows.StartupInfo
	var pi windows.ProcessInformation
	if err := windows.CreateProcess(appName, cmdLine, nil, nil, true, flags, envBlock, nil, &si, &pi); err != nil {
		return -1, fmt.Errorf("platform: CreateProcessW: %w", err)
	}
	defer windows.CloseHandle(pi.Thread)
	defer windows.CloseHandle(pi.Process)

	if _, err := windows.WaitForSingleObject(pi.Process, windows.INFINITE); err != nil {
		return -1, fmt.Errorf("platform: WaitForSingleObject: %w", err)
	}
	var exitCode uint32
	if err := windows.GetExitCodeProcess(pi.Process, &exitCode); err != nil {
		return -1, fmt.Errorf("platform: GetExitCodeProcess: %w", err)
	}
	return int(exitCode), nil
}

func (windowsBackend) Exit(code int) {
	windows.ExitProcess(uint32(code))
}

// buildCommandLine implements Windows command-line tokenization/quoting
// rules in-house (spec §4.6: no shell32 dependency).
func buildCommandLine(argv []string) string {
	var out []byte
	for i, a := range argv {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, quoteArg(a)...)
	}
	return string(out)
}

func quoteArg(s string) string {
	if s != "" && !containsSpaceOrQuote(s) {
		return s
	}
	var b []byte
	b = append(b, '"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			slashes++
			b = append(b, '\\')
		case '"':
			for j := 0; j < slashes+1; j++ {
				b = append(b, '\\')
			}
			b = append(b, '"')
			slashes = 0
		default:
			slashes = 0
			b = append(b, s[i])
		}
	}
	for j := 0; j < slashes; j++ {
		b = append(b, '\\')
	}
	b = append(b, '"')
	return string(b)
}

func containsSpaceOrQuote(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '"' {
			return true
		}
	}
	return false
}

func buildEnvBlock(envp []string) (*uint16, error) {
	var buf []uint16
	for _, kv := range envp {
		u, err := syscall.UTF16FromString(kv)
		if err != nil {
			return nil, err
		}
		buf = append(buf, u...) // includes the trailing NUL from UTF16FromString
	}
	buf = append(buf, 0) // double-NUL terminator
	return &buf[0], nil
}
