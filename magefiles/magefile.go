//go:build mage

// Package main contains Mage build targets for review-engine developer tooling.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/pkg/types"
)

// projectDirs lists the working directories a review run expects.
var projectDirs = []string{
	".secrets",
	"review/rounds",
	"review/decisions",
}

// Init creates the project directory structure for a review.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "review-engine"
	cmdPkg  = "./cmd/review-engine"
)

// Build compiles the CLI binary into bin/, stamping the git version.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// reviewDir is the default --out-dir of the CLI.
const reviewDir = "review"

// Stats prints Go code size and, when a review directory exists, the state
// of the run in it: seed set size, committed rounds, registry status counts
// and worksheets waiting for decisions.
func Stats() error {
	prodLines, testLines, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)

	if _, err := os.Stat(reviewDir); os.IsNotExist(err) {
		return nil
	}
	return reviewStats(reviewDir)
}

func reviewStats(dir string) error {
	var sel types.SelectionArtifact
	switch err := artifact.Read(filepath.Join(dir, artifact.SelectionFile), &sel); {
	case err == nil:
		fmt.Printf("Seed set:                       %d papers (run %s)\n", len(sel.Selected), sel.RunID)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	rounds, err := filepath.Glob(filepath.Join(dir, artifact.RoundsDir, "round-*.json"))
	if err != nil {
		return err
	}
	fmt.Printf("Rounds committed:               %d\n", len(rounds))

	var reg types.RegistryArtifact
	switch err := artifact.Read(filepath.Join(dir, artifact.RegistryFile), &reg); {
	case err == nil:
		counts := map[types.Status]int{}
		for _, e := range reg.Entries {
			counts[e.Status]++
		}
		fmt.Printf("Registry:                       %d included, %d excluded, %d hard excluded, %d pending\n",
			counts[types.StatusInclude], counts[types.StatusExclude],
			counts[types.StatusHardExclude], counts[types.StatusPending])
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	// Worksheets for committed rounds have been read; later ones still wait.
	sheets, err := filepath.Glob(filepath.Join(dir, "decisions", "round-*.yaml"))
	if err != nil {
		return err
	}
	if waiting := len(sheets) - len(rounds); waiting > 0 {
		fmt.Printf("Worksheets awaiting decisions:  %d\n", waiting)
	}
	return nil
}

// countGoLines counts non-blank lines in production and test Go files under
// root, skipping hidden and underscore-prefixed directories.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
