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

// leafNodes appends all leaves of the tree to out, depth first.
func leafNodes(root Node, out *[]Node) {
	children := root.Children()
	if len(children) == 0 {
		*out = append(*out, root)
		return
	}
	for _, child := range children {
		leafNodes(child, out)
	}
}

// hasNodeOfKind reports whether the tree contains a node of the given kind.
func hasNodeOfKind(root Node, kind NodeKind) bool {
	if root.Kind() == kind {
		return true
	}
	for _, child := range root.Children() {
		if hasNodeOfKind(child, kind) {
			return true
		}
	}
	return false
}

// replaceNodeInTree swaps oldNode for newNode wherever it hangs in *root.
// The replaced subtree is dropped; ownership of newNode moves to the tree.
func replaceNodeInTree(root *Node, oldNode, newNode Node) {
	if *root == oldNode {
		*root = newNode
		return
	}
	children := (*root).Children()
	for i := range children {
		replaceNodeInTree(&children[i], oldNode, newNode)
	}
}

// providesSort reports whether the node's provided sort set contains
// exactly the given pattern.
func providesSort(n Node, pattern keyval.Pattern) bool {
	for _, sort := range n.ProvidedSorts() {
		if sort.Equal(pattern) {
			return true
		}
	}
	return false
}

// ReverseScans flips the direction of every scan leaf in place, reversing
// index bounds to match. Derived properties are stale afterwards; the
// caller re-runs ComputeProperties on the root.
func ReverseScans(root Node) {
	switch node := root.(type) {
	case *IndexScanNode:
		node.Direction = -node.Direction
		node.Bounds.Reverse()
	case *CollectionScanNode:
		node.Direction = -node.Direction
	case *DistinctScanNode:
		node.Direction = -node.Direction
		node.Bounds.Reverse()
	}
	for _, child := range root.Children() {
		ReverseScans(child)
	}
}
