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
	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// OptionsFromKnobs maps process-wide tunables onto analyzer options.
func OptionsFromKnobs(k *query.Knobs) Options {
	var opts Options
	if k.SplitLimitedSort {
		opts |= SplitLimitedSort
	}
	return opts
}

// analyzeSort makes the tree produce the requested sort order, preferring
// strategies that avoid a blocking stage:
//
//  1. the tree already provides the order;
//  2. the tree provides the exact reverse, so every scan is flipped in
//     place;
//  3. point-interval scans are exploded into a merge-sorted fan of
//     single-point scans;
//  4. an explicit sort-key-generator + blocking sort pair is inserted.
//
// ok is false only when strategy 4 was needed but blocking sorts are
// disallowed. hasSortStage reports whether a blocking sort was inserted.
func analyzeSort(q *query.Query, params *Params, root Node) (out Node, hasSortStage bool, ok bool) {
	if q.Sort.IsEmpty() {
		return root, false, true
	}

	// A $natural sort is the enumerator's problem: it emits a collection
	// scan in the right direction and we leave the tree alone.
	if q.NaturalSort {
		return root, false, true
	}

	if providesSort(root, q.Sort) {
		return root, false, true
	}

	// See if we provide the reverse of the requested pattern. If so,
	// reversing the scan direction of every leaf gets us the sort without
	// a rebuild.
	if providesSort(root, q.Sort.Reversed()) {
		ReverseScans(root)
		root.ComputeProperties()
		log.V(2).Infof("reversed scan directions to provide sort %v", q.Sort)
		return root, false, true
	}

	// One last trick before we resign ourselves to a blocking stage:
	// explode point-interval scans into a merge-sorted union that exposes
	// the order.
	if newRoot, exploded := explodeForSort(q, params, root); exploded {
		return newRoot, false, true
	}

	if params.Options&NoBlockingSort != 0 {
		return nil, false, false
	}

	if !root.Fetched() {
		sortIsCovered := true
		for _, f := range q.Sort {
			if !root.HasField(f.Field) {
				sortIsCovered = false
				break
			}
		}
		if !sortIsCovered {
			root = NewFetchNode(root)
		}
	}

	// The sort stage needs sort keys on its input, so a generator stage
	// goes directly underneath it.
	keyGen := &SortKeyGeneratorNode{SortSpec: q.Sort}
	keyGen.AddChild(root)

	sort := &SortNode{Pattern: q.Sort}
	sort.AddChild(keyGen)
	root = sort

	// The sort must keep limit+skip results so a downstream skip stage can
	// discard the first skip of them.
	switch {
	case q.Limit != nil:
		sort.Limit = *q.Limit + q.Skip
	case q.NToReturn != nil:
		sort.Limit = *q.NToReturn + q.Skip

		// numToReturn is a single wire quantity that could mean either
		// limit or batch size, and we cannot tell which the client wanted.
		// (A negative value, wantMore false, is unambiguously a limit.)
		//
		// If it is a limit, fusing it into the sort gives us a cheap top-k.
		// If it is a batch size, the top-k would silently truncate the
		// result set. So when allowed, we run both variants under a
		// deduplicating OR, top-k first, and re-enforce the order above
		// the union since its branches may observe concurrent writes
		// differently. Text and geo stages assume they appear exactly once
		// in a plan, so those queries are excluded.
		if q.WantMore && params.Options&SplitLimitedSort != 0 &&
			!q.Filter.HasKind(query.PredicateText) &&
			!q.Filter.HasKind(query.PredicateGeo) &&
			!q.Filter.HasKind(query.PredicateGeoNear) {
			orn := &OrNode{Dedup: true}
			orn.AddChild(sort)

			sortClone := sort.Clone().(*SortNode)
			sortClone.Limit = 0
			orn.AddChild(sortClone)

			esn := &EnsureSortedNode{Pattern: sort.Pattern}
			esn.AddChild(orn)
			root = esn
		}
	default:
		sort.Limit = 0
	}

	return root, true, true
}
