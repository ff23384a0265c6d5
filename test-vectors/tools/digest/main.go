package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/minio/sha256-simd"
)

// Prints one digest over the names and contents of every vector in a directory written with
// VESTING_TEST_VECTORS set, so two runs can be compared for determinism.
func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Expected exactly one argument, path of directory to digest")
		os.Exit(1)
	}
	rootDir := os.Args[1]
	var paths []string
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		content, err := os.ReadFile(p)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		h.Write([]byte(rel))
		h.Write(content)
	}
	fmt.Printf("- %d vectors %x\n", len(paths), h.Sum(nil))
}
