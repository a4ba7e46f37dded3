//go:build !cgo

package main

import "github.com/dusk-indust/convene/internal/lineage"

// openLineage reports no store: the persistent lineage graph rides on the
// cgo KuzuDB driver. Runs are still archived under .convene/runs.
func openLineage(string) (lineage.Store, error) {
	return nil, nil
}
