// Command print-env dumps argv and the process environment, for validating
// exactly what the launcher handed a child process.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

var interestingVars = []string{
	"RUNFILES_DIR",
	"RUNFILES_MANIFEST_FILE",
	"JAVA_RUNFILES",
	"PATH",
	"PWD",
	"HOME",
	"USER",
	"USERPROFILE",
	"TEMP",
	"TMP",
}

func main() {
	fmt.Printf("ARGS:%s\n", strings.Join(os.Args, "|"))
	fmt.Printf("ARGC:%d\n", len(os.Args))

	fmt.Println("---ENV_START---")
	for _, v := range interestingVars {
		if val, ok := os.LookupEnv(v); ok {
			fmt.Printf("ENV:%s=%s\n", v, val)
		} else {
			fmt.Printf("ENV:%s=<unset>\n", v)
		}
	}
	fmt.Println("---ENV_END---")

	fmt.Println("---ALL_ENV_START---")
	all := os.Environ()
	sort.Strings(all)
	for _, kv := range all {
		fmt.Printf("ALL_ENV:%s\n", kv)
	}
	fmt.Println("---ALL_ENV_END---")
}
