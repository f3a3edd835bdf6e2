// Command orchestrator calls other demo binaries and reports their
// results, exercising RUNFILES_DIR / RUNFILES_MANIFEST_FILE propagation
// into child processes spawned by a finalized stub.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [args...]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands: hash-and-report, sum-and-double, chain, env-check")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "hash-and-report":
		if len(os.Args) != 4 {
			fmt.Fprintf(os.Stderr, "Usage: %s hash-and-report <hash_binary> <file>\n", os.Args[0])
			os.Exit(1)
		}
		hashAndReport(os.Args[2], os.Args[3])
	case "sum-and-double":
		if len(os.Args) != 5 {
			fmt.Fprintf(os.Stderr, "Usage: %s sum-and-double <add_binary> <num1> <num2>\n", os.Args[0])
			os.Exit(1)
		}
		sumAndDouble(os.Args[2], os.Args[3], os.Args[4])
	case "chain":
		if len(os.Args) != 6 {
			fmt.Fprintf(os.Stderr, "Usage: %s chain <binary1> <binary2> <file1> <file2>\n", os.Args[0])
			os.Exit(1)
		}
		chain(os.Args[2], os.Args[3], os.Args[4], os.Args[5])
	case "env-check":
		envCheck()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func runCaptured(binary string, args ...string) (string, error) {
	out, err := exec.Command(binary, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%s", exitErr.Stderr)
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func hashAndReport(hashBinary, file string) {
	out, err := runCaptured(hashBinary, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hash binary failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ORCHESTRATOR:HASH_RESULT:%s\n", out)
}

func sumAndDouble(addBinary, num1, num2 string) {
	out, err := runCaptured(addBinary, num1, num2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Add binary failed: %v\n", err)
		os.Exit(1)
	}
	sumStr, ok := strings.CutPrefix(out, "SUM:")
	if !ok {
		fmt.Fprintf(os.Stderr, "Failed to parse sum output: %s\n", out)
		os.Exit(1)
	}
	sum, err := strconv.ParseInt(sumStr, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse sum output: %s\n", out)
		os.Exit(1)
	}
	fmt.Printf("ORCHESTRATOR:DOUBLED:%d\n", sum*2)
}

func chain(binary1, binary2, file1, file2 string) {
	result1, err := runCaptured(binary1, file1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Binary1 failed: %v\n", err)
		os.Exit(1)
	}
	result2, err := runCaptured(binary2, file2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Binary2 failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ORCHESTRATOR:CHAIN:%s|%s\n", result1, result2)
}

func envCheck() {
	fmt.Printf("ORCHESTRATOR:ENV_CHECK:RUNFILES_DIR=%s\n", envOrUnset("RUNFILES_DIR"))
	fmt.Printf("ORCHESTRATOR:ENV_CHECK:RUNFILES_MANIFEST_FILE=%s\n", envOrUnset("RUNFILES_MANIFEST_FILE"))
	fmt.Printf("ORCHESTRATOR:ENV_CHECK:JAVA_RUNFILES=%s\n", envOrUnset("JAVA_RUNFILES"))
}

func envOrUnset(name string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return "<unset>"
}
