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

import (
	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// analyzeProjection caps the tree with a projection stage, inserting a
// fetch below it when the tree cannot supply every projected field from
// index keys alone.
func analyzeProjection(q *query.Query, root Node, hasSortStage bool) Node {
	proj := q.Proj

	// Sort key metadata is normally produced by the sort stage; without
	// one the key has to be generated explicitly.
	if proj.WantSortKey && !hasSortStage {
		skg := &SortKeyGeneratorNode{SortSpec: q.Sort}
		skg.AddChild(root)
		root = skg
	}

	if proj.WantIndexKey {
		var leaves []Node
		leafNodes(root, &leaves)
		for _, leaf := range leaves {
			if isn, ok := leaf.(*IndexScanNode); ok {
				isn.AddKeyMetadata = true
			}
		}
	}

	covered := !proj.RequiresDocument
	if covered {
		for _, field := range proj.RequiredFields {
			if !root.HasField(field) {
				covered = false
				break
			}
		}
	}
	// A returnKey projection outputs index keys, so missing fields never
	// force a fetch.
	if !covered && !root.Fetched() && !proj.WantIndexKey {
		root = NewFetchNode(root)
	}

	pn := &ProjectionNode{Proj: proj}
	switch {
	case !proj.IsSimple():
		pn.Variant = ProjectionDefault
	case root.Fetched():
		pn.Variant = ProjectionSimple
	default:
		// A simple projection over bare index keys can read straight from
		// the key when exactly one index feeds the tree. A multi-leaf tree
		// (a merge-sorted fan) has no single key to read from and falls
		// back to the general implementation.
		if pattern := coveredKeyPattern(root); !pattern.IsEmpty() {
			pn.Variant = ProjectionCovered
			pn.CoveredKeyPattern = pattern
		} else {
			pn.Variant = ProjectionDefault
		}
	}
	pn.AddChild(root)
	return pn
}

// coveredKeyPattern returns the key pattern a covered projection would read
// from, or an empty pattern when the tree is not fed by exactly one index
// scan.
func coveredKeyPattern(root Node) keyval.Pattern {
	var leaves []Node
	leafNodes(root, &leaves)
	if len(leaves) != 1 {
		return nil
	}
	switch leaf := leaves[0].(type) {
	case *IndexScanNode:
		return leaf.Index.KeyPattern
	case *DistinctScanNode:
		return leaf.Index.KeyPattern
	}
	return nil
}
