// Package snapshots provides embedded demo snapshot data.
package snapshots

import (
	_ "embed"
	"fmt"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/snapshot"
)

// DemoJSON is the bundled demo snapshot, embedded at build time.
//
//go:embed demo.json
var DemoJSON []byte

// Demo builds a component tree from the bundled demo snapshot. Every call
// returns an independent tree.
func Demo() (*component.Tree, error) {
	_, tree, err := snapshot.LoadFromBytes(DemoJSON)
	if err != nil {
		return nil, fmt.Errorf("bundled demo snapshot: %w", err)
	}
	return tree, nil
}
