// Command merge-json shallow-merges two JSON object files, with keys from
// the second overriding the first, and prints MERGED:<json>. Falls back to
// a two-element array when either input isn't a JSON object.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <file1.json> <file2.json>\n", os.Args[0])
		os.Exit(1)
	}

	v1, err := readJSON(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	v2, err := readJSON(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	merged := merge(v1, v2)
	out, err := json.Marshal(merged)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding merged JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("MERGED:%s\n", out)
}

func readJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing as JSON: %w", err)
	}
	return v, nil
}

func merge(v1, v2 any) any {
	obj1, ok1 := v1.(map[string]any)
	obj2, ok2 := v2.(map[string]any)
	if !ok1 || !ok2 {
		return []any{v1, v2}
	}
	merged := make(map[string]any, len(obj1)+len(obj2))
	for k, v := range obj1 {
		merged[k] = v
	}
	for k, v := range obj2 {
		merged[k] = v
	}
	return merged
}
