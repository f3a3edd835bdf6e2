// Command add-numbers sums its integer arguments and prints SUM:<result>.
// Demo target used by the integration fixtures to exercise argv transform
// and pass-through.
package main

import (
	"fmt"
	"os"
	"strconv"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <num1> <num2> [num3 ...]\n", os.Args[0])
		os.Exit(1)
	}

	var sum int64
	for _, arg := range os.Args[1:] {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing %q as number: %v\n", arg, err)
			os.Exit(1)
		}
		sum += n
	}

	fmt.Printf("SUM:%d\n", sum)
}
