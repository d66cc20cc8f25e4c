// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact reads and writes the run's JSON record files. Every file
// holds one schema-versioned object; readers reject unknown fields, missing
// required fields, and versions this build does not understand.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/review-engine/pkg/types"
)

// File names inside a run's output directory.
const (
	CutoffFile    = "cutoff.json"
	PhrasesFile   = "phrases.json"
	QueriesFile   = "queries.json"
	SelectionFile = "selection.json"
	RegistryFile  = "registry.json"
	RoundsDir     = "rounds"
)

// ErrSchema is returned when an artifact does not match its schema.
var ErrSchema = errors.New("artifact schema mismatch")

// Versioned is implemented by every artifact type.
type Versioned interface {
	ArtifactVersion() int
}

// RoundFile returns the path of round n's metadata file relative to the
// output directory.
func RoundFile(n int) string {
	return filepath.Join(RoundsDir, fmt.Sprintf("round-%02d.json", n))
}

// Write validates v and writes it as indented JSON to path, creating parent
// directories. The file is replaced atomically.
func Write(path string, v Versioned) error {
	if err := types.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchema, filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads the artifact at path into v.
func Read(path string, v Versioned) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := Decode(bytes.NewReader(data), v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Decode reads one artifact from r into v and checks it.
func Decode(r io.Reader, v Versioned) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after object", ErrSchema)
	}
	if got := v.ArtifactVersion(); got != types.SchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d (want %d)", ErrSchema, got, types.SchemaVersion)
	}
	if err := types.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
