// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/internal/registry"
)

// registryDB is the SQLite registry file inside the output directory.
const registryDB = "registry.db"

// openStore opens the registry backend. The SQLite backend also exports
// registry.json after every save.
func openStore(backend, outDir string) (registry.Store, error) {
	jsonStore := &registry.JSONStore{Path: filepath.Join(outDir, artifact.RegistryFile)}
	switch backend {
	case "", "json":
		return jsonStore, nil
	case "sqlite":
		db, err := registry.OpenSQLite(filepath.Join(outDir, registryDB))
		if err != nil {
			return nil, err
		}
		return registry.Tee{db, jsonStore}, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q (want json or sqlite)", backend)
	}
}
