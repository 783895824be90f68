/*
Copyright 2026 The Mangrove Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package planner

import "github.com/mangrovedb/mangrove/go/mg/keyval"

// Geo2DSphereV3 is the first 2dsphere index version whose cells are
// validated on insert, letting matching skip re-validation at query time.
const Geo2DSphereV3 = 3

// IndexEntry describes one index of the collection as the planner sees it.
type IndexEntry struct {
	Name       string
	KeyPattern keyval.Pattern

	// Multikey is set when any indexed field holds array values anywhere in
	// the collection.
	Multikey bool

	// MultikeyPaths records, per key pattern field, which path components
	// are multikey. An empty map on a multikey index means the catalog has
	// no path-level multikeyness metadata for it.
	MultikeyPaths map[string][]string

	// Geo2DSphereVersion is the index version for 2dsphere components, zero
	// otherwise.
	Geo2DSphereVersion int

	// Collation names the index's collation, empty for the simple binary
	// collation.
	Collation string

	Unique bool
}

// MultikeyFields returns the set of key pattern fields with multikey
// components, according to the path-level metadata.
func (e IndexEntry) MultikeyFields() map[string]bool {
	if len(e.MultikeyPaths) == 0 {
		return nil
	}
	fields := make(map[string]bool, len(e.MultikeyPaths))
	for field, components := range e.MultikeyPaths {
		if len(components) > 0 {
			fields[field] = true
		}
	}
	return fields
}

// SortPattern derives the sort order an ascending scan of the index key
// pattern yields, stopping at the first special (non-ordinal) component.
func (e IndexEntry) SortPattern() keyval.Pattern {
	var out keyval.Pattern
	for _, f := range e.KeyPattern {
		if !f.Ordinal() {
			break
		}
		out = append(out, f)
	}
	return out
}
