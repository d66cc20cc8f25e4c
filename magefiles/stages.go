//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func bin() string { return filepath.Join(binDir, binName) }

// Seed builds the CLI and runs the seed stage for topic. The generator
// command comes from review-engine.yaml or REVIEW_ENGINE_GENERATOR_CMD.
func Seed(topic string) error {
	mg.Deps(Build)
	return sh.RunV(bin(), "seed", topic)
}

// Snowball builds the CLI and runs the review rounds on the current seed set.
func Snowball() error {
	mg.Deps(Build)
	return sh.RunV(bin(), "snowball")
}

// Registry prints the review registry.
func Registry() error {
	mg.Deps(Build)
	return sh.RunV(bin(), "registry", "show")
}
