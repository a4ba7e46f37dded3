//go:build cgo

package main

import (
	"context"
	"path/filepath"

	"github.com/dusk-indust/convene/internal/lineage"
)

// openLineage opens the persistent lineage graph under the project's
// .convene directory, creating and migrating it on first use.
func openLineage(projectRoot string) (lineage.Store, error) {
	store, err := lineage.NewKuzuFileStore(filepath.Join(projectRoot, ".convene", "lineage"))
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(context.Background()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
