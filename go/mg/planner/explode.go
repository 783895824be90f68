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
	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// explodeForSort rewrites point-interval index scans into a merge-sorted
// union of single-point scans that exposes the requested sort order.
//
// An index scan bounded by several equality values per field cannot expose
// a sort beyond those equality fields: rows for the second equality value
// start over from the beginning of the sort. Splitting the scan into one
// scan per combination of equality values makes each sub-scan sorted on
// the remaining fields, and a merge-sort over the fan restores one ordered
// stream without blocking.
//
// On success the returned root contains the rewrite and exploded is true;
// otherwise the tree is returned unchanged.
func explodeForSort(q *query.Query, params *Params, root Node) (out Node, exploded bool) {
	toReplace, ok := structureOKForExplode(root)
	if !ok {
		return root, false
	}

	var leaves []Node
	leafNodes(root, &leaves)

	desiredSort := q.Sort

	// Total number of scans the expansion would create.
	totalNumScans := 0

	// Per leaf, how many leading point-bounded fields to explode. Computed
	// here, reused when we blow the scans up.
	fieldsToExplode := make([]int, 0, len(leaves))

	// The requested sort must be obtainable from every leaf once its point
	// prefix is exploded away.
	for _, leaf := range leaves {
		// structureOKForExplode only passes trees whose leaves are index
		// scans.
		isn := leaf.(*IndexScanNode)
		bounds := &isn.Bounds

		// Bounds over raw keys have no per-field decomposition to explode.
		if bounds.SimpleRange {
			return root, false
		}

		if isn.Index.Multikey && len(isn.Index.MultikeyPaths) == 0 {
			// Without path-level multikeyness metadata the index can never
			// provide a sort.
			return root, false
		}

		// Walk the leading fields whose bounds are unions of points; each
		// multiplies the number of scans this leaf explodes into.
		numScans := 1
		pointPrefix := 0
		for pointPrefix < len(isn.Index.KeyPattern) && pointPrefix < len(bounds.Fields) {
			oil := bounds.Fields[pointPrefix]
			if !oil.IsUnionOfPoints() {
				break
			}
			numScans *= len(oil.Intervals)
			pointPrefix++
		}

		// No sort order left to gain by exploding.
		if pointPrefix == len(isn.Index.KeyPattern) {
			return root, false
		}

		// Nothing to explode for this leaf.
		if pointPrefix == 0 {
			return root, false
		}

		// The fields after the point prefix are the sort the exploded
		// scans would expose.
		var possibleSort keyval.Pattern
		for _, f := range isn.Index.KeyPattern[pointPrefix:] {
			if isn.MultikeyFields[f.Field] {
				// A field with multikey components cannot provide a sort.
				return root, false
			}
			if !f.Ordinal() {
				break
			}
			possibleSort = append(possibleSort, keyval.PatternField{Field: f.Field, Dir: f.Dir * isn.Direction})
		}

		if !desiredSort.IsPrefixOf(possibleSort) {
			// Maybe the reversed scan provides it.
			if !desiredSort.IsPrefixOf(possibleSort.Reversed()) {
				return root, false
			}
			ReverseScans(isn)
		}

		totalNumScans += numScans
		fieldsToExplode = append(fieldsToExplode, pointPrefix)
	}

	// Too many index scans spoil the performance: a huge fan trades a
	// blocking sort for memory and open-cursor cost that is rarely worth
	// it.
	if totalNumScans > params.knobs().MaxScansToExplode {
		log.V(2).Infof("could explode scans to pull out sort order, but the resulting scan count (%d) is too high", totalNumScans)
		return root, false
	}

	merge := &MergeSortNode{Pattern: desiredSort}
	for i, leaf := range leaves {
		explodeScan(leaf.(*IndexScanNode), fieldsToExplode[i], merge)
	}
	merge.ComputeProperties()

	replaced := Node(root)
	replaceNodeInTree(&replaced, toReplace, merge)
	replaced.ComputeProperties()
	return replaced, true
}

// structureOKForExplode reports whether the tree has a shape we know how to
// explode, and returns the node the merge-sort of exploded scans will
// replace. Only sure bets qualify: a bare index scan, a fetch directly over
// an index scan, or an OR of pure index scans, optionally under a sharding
// filter.
func structureOKForExplode(root Node) (toReplace Node, ok bool) {
	if root.Kind() == KindShardingFilter {
		root = root.Children()[0]
	}

	switch root.Kind() {
	case KindIndexScan:
		return root, true
	case KindFetch:
		child := root.Children()[0]
		if child.Kind() == KindIndexScan {
			return child, true
		}
	case KindOr:
		for _, child := range root.Children() {
			if child.Kind() != KindIndexScan {
				return nil, false
			}
		}
		return root, true
	}
	return nil, false
}

// pointPrefix is the tuple of point intervals assigned to one exploded
// scan.
type pointPrefix []Interval

// makeCartesianProduct computes the Cartesian product of the first
// fieldsToExplode point-bounded fields of bounds. The first field varies
// slowest.
func makeCartesianProduct(bounds IndexBounds, fieldsToExplode int) []pointPrefix {
	prefixes := []pointPrefix{nil}
	for i := 0; i < fieldsToExplode; i++ {
		oil := bounds.Fields[i]
		next := make([]pointPrefix, 0, len(prefixes)*len(oil.Intervals))
		for _, prefix := range prefixes {
			for _, ival := range oil.Intervals {
				grown := make(pointPrefix, len(prefix), len(prefix)+1)
				copy(grown, prefix)
				next = append(next, append(grown, ival))
			}
		}
		prefixes = next
	}
	return prefixes
}

// explodeScan appends to merge one clone of isn per combination of its
// leading point intervals, each bounded to a single point per exploded
// field and sharing everything else with the original.
func explodeScan(isn *IndexScanNode, fieldsToExplode int, merge *MergeSortNode) {
	for _, prefix := range makeCartesianProduct(isn.Bounds, fieldsToExplode) {
		child := NewIndexScanNode(isn.Index)
		child.Direction = isn.Direction
		child.AddKeyMetadata = isn.AddKeyMetadata
		child.QueryCollation = isn.QueryCollation
		child.SetFilter(isn.Filter().Clone())

		child.Bounds.Fields = make([]OrderedIntervalList, len(isn.Bounds.Fields))
		for j := 0; j < fieldsToExplode; j++ {
			child.Bounds.Fields[j] = OrderedIntervalList{
				Field:     isn.Bounds.Fields[j].Field,
				Intervals: []Interval{prefix[j]},
			}
		}
		for j := fieldsToExplode; j < len(isn.Bounds.Fields); j++ {
			oil := isn.Bounds.Fields[j]
			child.Bounds.Fields[j] = OrderedIntervalList{
				Field:     oil.Field,
				Intervals: append([]Interval(nil), oil.Intervals...),
			}
		}
		merge.AddChild(child)
	}
}
