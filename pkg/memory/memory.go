// Package memory implements dotted-path reads and writes over a
// conversation's memory map, so `remember user.name = ...` can target
// nested structures.
package memory

import (
	"github.com/Jeffail/gabs/v2"
)

// Get resolves a dotted path in mem.
func Get(mem map[string]any, path string) (any, bool) {
	c := gabs.Wrap(mem)
	if !c.ExistsP(path) {
		return nil, false
	}
	return c.Path(path).Data(), true
}

// Set writes value at a dotted path in mem, creating intermediate objects
// as needed. mem is mutated in place.
func Set(mem map[string]any, path string, value any) error {
	_, err := gabs.Wrap(mem).SetP(value, path)
	return err
}

// Root returns the first segment of a dotted path: the top-level memory key
// a write lands under.
func Root(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
