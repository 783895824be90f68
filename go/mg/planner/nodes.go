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
	"fmt"
	"strings"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// NodeKind tags the concrete type of a solution node. The set is closed;
// the analyzer matches on it exhaustively.
type NodeKind int

const (
	KindIndexScan NodeKind = iota
	KindCollScan
	KindDistinctScan
	KindFetch
	KindOr
	KindAndHash
	KindSortKeyGenerator
	KindSort
	KindMergeSort
	KindEnsureSorted
	KindLimit
	KindSkip
	KindShardingFilter
	KindProjection
)

var kindNames = map[NodeKind]string{
	KindIndexScan:        "IXSCAN",
	KindCollScan:         "COLLSCAN",
	KindDistinctScan:     "DISTINCT_SCAN",
	KindFetch:            "FETCH",
	KindOr:               "OR",
	KindAndHash:          "AND_HASH",
	KindSortKeyGenerator: "SORT_KEY_GENERATOR",
	KindSort:             "SORT",
	KindMergeSort:        "SORT_MERGE",
	KindEnsureSorted:     "ENSURE_SORTED",
	KindLimit:            "LIMIT",
	KindSkip:             "SKIP",
	KindShardingFilter:   "SHARDING_FILTER",
	KindProjection:       "PROJECTION",
}

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(k))
}

// Node is one node of a solution tree. A node owns its children
// exclusively; trees never share nodes.
//
// Nodes expose three derived properties: the set of sort orders the subtree
// guarantees, whether the subtree has materialized full documents
// ("fetched"), and which field paths it can answer without materializing.
// ComputeProperties refreshes whatever a node caches; it must be re-run
// after structural mutation (scan reversal, subtree replacement).
type Node interface {
	Kind() NodeKind
	Children() []Node

	// Filter is the residual predicate applied at this node, nil if none.
	Filter() *query.Predicate
	SetFilter(*query.Predicate)

	Fetched() bool
	HasField(field string) bool
	ProvidedSorts() []keyval.Pattern
	ComputeProperties()

	Clone() Node
}

type baseNode struct {
	children []Node
	filter   *query.Predicate
}

func (n *baseNode) Children() []Node             { return n.children }
func (n *baseNode) Filter() *query.Predicate     { return n.filter }
func (n *baseNode) SetFilter(p *query.Predicate) { n.filter = p }

// AddChild appends a child. The node takes ownership.
func (n *baseNode) AddChild(child Node) { n.children = append(n.children, child) }

func (n *baseNode) computeChildProperties() {
	for _, child := range n.children {
		child.ComputeProperties()
	}
}

func (n *baseNode) cloneInto(out *baseNode) {
	out.filter = n.filter.Clone()
	if len(n.children) > 0 {
		out.children = make([]Node, len(n.children))
		for i, child := range n.children {
			out.children[i] = child.Clone()
		}
	}
}

// child is the single input of a pass-through node.
func (n *baseNode) child() Node {
	return n.children[0]
}

// IndexScanNode scans one index over the given bounds.
type IndexScanNode struct {
	baseNode

	Index  IndexEntry
	Bounds IndexBounds

	// Direction is +1 for a forward scan, -1 for a reverse scan.
	Direction int

	// AddKeyMetadata requests index key metadata on every result.
	AddKeyMetadata bool

	// QueryCollation is the collation of the owning query. When it differs
	// from the index collation, string index keys are collation keys and
	// cannot cover fields.
	QueryCollation string

	// MultikeyFields are the key pattern fields with multikey components.
	MultikeyFields map[string]bool

	sorts []keyval.Pattern
}

// NewIndexScanNode returns a scan of the given index with empty bounds and
// forward direction.
func NewIndexScanNode(index IndexEntry) *IndexScanNode {
	return &IndexScanNode{
		Index:          index,
		Direction:      1,
		MultikeyFields: index.MultikeyFields(),
	}
}

func (n *IndexScanNode) Kind() NodeKind { return KindIndexScan }
func (n *IndexScanNode) Fetched() bool  { return false }

func (n *IndexScanNode) HasField(field string) bool {
	if n.Index.Collation != n.QueryCollation {
		// Index keys are collation keys, not the stored values.
		return false
	}
	if n.MultikeyFields[field] {
		return false
	}
	for _, f := range n.Index.KeyPattern {
		if f.Field == field {
			return f.Ordinal()
		}
	}
	return false
}

func (n *IndexScanNode) ProvidedSorts() []keyval.Pattern { return n.sorts }

// ComputeProperties derives the sort orders the scan guarantees: every
// non-empty prefix of the key pattern up to the first special or multikey
// field, with directions adjusted for the scan direction. A multikey index
// without path-level metadata guarantees no order at all.
func (n *IndexScanNode) ComputeProperties() {
	n.computeChildProperties()
	n.sorts = nil
	if n.Index.Multikey && len(n.Index.MultikeyPaths) == 0 {
		return
	}
	var prefix keyval.Pattern
	for _, f := range n.Index.KeyPattern {
		if !f.Ordinal() || n.MultikeyFields[f.Field] {
			break
		}
		prefix = append(prefix, keyval.PatternField{Field: f.Field, Dir: f.Dir * n.Direction})
	}
	for end := 1; end <= len(prefix); end++ {
		n.sorts = append(n.sorts, prefix[:end:end])
	}
}

func (n *IndexScanNode) Clone() Node {
	out := &IndexScanNode{
		Index:          n.Index,
		Bounds:         n.Bounds.Clone(),
		Direction:      n.Direction,
		AddKeyMetadata: n.AddKeyMetadata,
		QueryCollation: n.QueryCollation,
		sorts:          append([]keyval.Pattern(nil), n.sorts...),
	}
	if n.MultikeyFields != nil {
		out.MultikeyFields = make(map[string]bool, len(n.MultikeyFields))
		for f, v := range n.MultikeyFields {
			out.MultikeyFields[f] = v
		}
	}
	n.cloneInto(&out.baseNode)
	return out
}

// CollectionScanNode scans the whole collection in record order.
type CollectionScanNode struct {
	baseNode

	Namespace string
	Direction int
}

func (n *CollectionScanNode) Kind() NodeKind                 { return KindCollScan }
func (n *CollectionScanNode) Fetched() bool                  { return true }
func (n *CollectionScanNode) HasField(string) bool           { return true }
func (n *CollectionScanNode) ProvidedSorts() []keyval.Pattern { return nil }
func (n *CollectionScanNode) ComputeProperties()             { n.computeChildProperties() }

func (n *CollectionScanNode) Clone() Node {
	out := &CollectionScanNode{Namespace: n.Namespace, Direction: n.Direction}
	n.cloneInto(&out.baseNode)
	return out
}

// DistinctScanNode is an index scan that skips to the next distinct value
// of one key pattern field. Like an index scan, it provides covered key
// data.
type DistinctScanNode struct {
	baseNode

	Index     IndexEntry
	Bounds    IndexBounds
	Direction int

	// FieldNo is the key pattern position being distinct-ed.
	FieldNo int

	sorts []keyval.Pattern
}

func (n *DistinctScanNode) Kind() NodeKind { return KindDistinctScan }
func (n *DistinctScanNode) Fetched() bool  { return false }

func (n *DistinctScanNode) HasField(field string) bool {
	for _, f := range n.Index.KeyPattern {
		if f.Field == field {
			return f.Ordinal()
		}
	}
	return false
}

func (n *DistinctScanNode) ProvidedSorts() []keyval.Pattern { return n.sorts }

func (n *DistinctScanNode) ComputeProperties() {
	n.computeChildProperties()
	n.sorts = nil
	var prefix keyval.Pattern
	for _, f := range n.Index.KeyPattern {
		if !f.Ordinal() {
			break
		}
		prefix = append(prefix, keyval.PatternField{Field: f.Field, Dir: f.Dir * n.Direction})
	}
	for end := 1; end <= len(prefix); end++ {
		n.sorts = append(n.sorts, prefix[:end:end])
	}
}

func (n *DistinctScanNode) Clone() Node {
	out := &DistinctScanNode{
		Index:     n.Index,
		Bounds:    n.Bounds.Clone(),
		Direction: n.Direction,
		FieldNo:   n.FieldNo,
		sorts:     append([]keyval.Pattern(nil), n.sorts...),
	}
	n.cloneInto(&out.baseNode)
	return out
}

// FetchNode materializes the full document for each input record.
type FetchNode struct {
	baseNode
}

// NewFetchNode wraps child in a fetch stage.
func NewFetchNode(child Node) *FetchNode {
	n := &FetchNode{}
	n.children = append(n.children, child)
	return n
}

func (n *FetchNode) Kind() NodeKind                 { return KindFetch }
func (n *FetchNode) Fetched() bool                  { return true }
func (n *FetchNode) HasField(string) bool           { return true }
func (n *FetchNode) ProvidedSorts() []keyval.Pattern { return n.child().ProvidedSorts() }
func (n *FetchNode) ComputeProperties()             { n.computeChildProperties() }

func (n *FetchNode) Clone() Node {
	out := &FetchNode{}
	n.cloneInto(&out.baseNode)
	return out
}

// OrNode unions its children, deduplicating on record identity.
type OrNode struct {
	baseNode

	Dedup bool
}

func (n *OrNode) Kind() NodeKind { return KindOr }

func (n *OrNode) Fetched() bool {
	for _, child := range n.children {
		if !child.Fetched() {
			return false
		}
	}
	return true
}

func (n *OrNode) HasField(field string) bool {
	for _, child := range n.children {
		if !child.HasField(field) {
			return false
		}
	}
	return true
}

func (n *OrNode) ProvidedSorts() []keyval.Pattern { return nil }
func (n *OrNode) ComputeProperties()              { n.computeChildProperties() }

func (n *OrNode) Clone() Node {
	out := &OrNode{Dedup: n.Dedup}
	n.cloneInto(&out.baseNode)
	return out
}

// AndHashNode intersects its children by building a hash table of all but
// the last child's results. It is a blocking stage; its output order is the
// last child's order.
type AndHashNode struct {
	baseNode
}

func (n *AndHashNode) Kind() NodeKind { return KindAndHash }

func (n *AndHashNode) Fetched() bool {
	for _, child := range n.children {
		if child.Fetched() {
			return true
		}
	}
	return false
}

func (n *AndHashNode) HasField(field string) bool {
	for _, child := range n.children {
		if child.HasField(field) {
			return true
		}
	}
	return false
}

func (n *AndHashNode) ProvidedSorts() []keyval.Pattern {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1].ProvidedSorts()
}

func (n *AndHashNode) ComputeProperties() { n.computeChildProperties() }

func (n *AndHashNode) Clone() Node {
	out := &AndHashNode{}
	n.cloneInto(&out.baseNode)
	return out
}

// SortKeyGeneratorNode computes and attaches sort key metadata to each
// result, for consumption by a downstream sort or sort-aware projection.
type SortKeyGeneratorNode struct {
	baseNode

	SortSpec keyval.Pattern
}

func (n *SortKeyGeneratorNode) Kind() NodeKind                 { return KindSortKeyGenerator }
func (n *SortKeyGeneratorNode) Fetched() bool                  { return n.child().Fetched() }
func (n *SortKeyGeneratorNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *SortKeyGeneratorNode) ProvidedSorts() []keyval.Pattern { return n.child().ProvidedSorts() }
func (n *SortKeyGeneratorNode) ComputeProperties()             { n.computeChildProperties() }

func (n *SortKeyGeneratorNode) Clone() Node {
	out := &SortKeyGeneratorNode{SortSpec: append(keyval.Pattern(nil), n.SortSpec...)}
	n.cloneInto(&out.baseNode)
	return out
}

// SortNode is the blocking sort stage: it consumes all input before
// emitting anything.
type SortNode struct {
	baseNode

	Pattern keyval.Pattern

	// Limit fuses a top-k limit into the sort; zero means sort everything.
	Limit int64
}

func (n *SortNode) Kind() NodeKind                 { return KindSort }
func (n *SortNode) Fetched() bool                  { return n.child().Fetched() }
func (n *SortNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *SortNode) ProvidedSorts() []keyval.Pattern { return []keyval.Pattern{n.Pattern} }
func (n *SortNode) ComputeProperties()             { n.computeChildProperties() }

func (n *SortNode) Clone() Node {
	out := &SortNode{Pattern: append(keyval.Pattern(nil), n.Pattern...), Limit: n.Limit}
	n.cloneInto(&out.baseNode)
	return out
}

// MergeSortNode merges the already-sorted streams of its children into one
// stream ordered by Pattern. It is not blocking.
type MergeSortNode struct {
	baseNode

	Pattern keyval.Pattern
	Dedup   bool
}

func (n *MergeSortNode) Kind() NodeKind { return KindMergeSort }

func (n *MergeSortNode) Fetched() bool {
	for _, child := range n.children {
		if !child.Fetched() {
			return false
		}
	}
	return true
}

func (n *MergeSortNode) HasField(field string) bool {
	for _, child := range n.children {
		if !child.HasField(field) {
			return false
		}
	}
	return true
}

func (n *MergeSortNode) ProvidedSorts() []keyval.Pattern { return []keyval.Pattern{n.Pattern} }
func (n *MergeSortNode) ComputeProperties()              { n.computeChildProperties() }

func (n *MergeSortNode) Clone() Node {
	out := &MergeSortNode{Pattern: append(keyval.Pattern(nil), n.Pattern...), Dedup: n.Dedup}
	n.cloneInto(&out.baseNode)
	return out
}

// EnsureSortedNode drops results that would break the sort order of its
// input. It corrects streams whose underlying data moved while being read.
type EnsureSortedNode struct {
	baseNode

	Pattern keyval.Pattern
}

func (n *EnsureSortedNode) Kind() NodeKind                 { return KindEnsureSorted }
func (n *EnsureSortedNode) Fetched() bool                  { return n.child().Fetched() }
func (n *EnsureSortedNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *EnsureSortedNode) ProvidedSorts() []keyval.Pattern { return []keyval.Pattern{n.Pattern} }
func (n *EnsureSortedNode) ComputeProperties()             { n.computeChildProperties() }

func (n *EnsureSortedNode) Clone() Node {
	out := &EnsureSortedNode{Pattern: append(keyval.Pattern(nil), n.Pattern...)}
	n.cloneInto(&out.baseNode)
	return out
}

// LimitNode passes through at most Limit results.
type LimitNode struct {
	baseNode

	Limit int64
}

func (n *LimitNode) Kind() NodeKind                 { return KindLimit }
func (n *LimitNode) Fetched() bool                  { return n.child().Fetched() }
func (n *LimitNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *LimitNode) ProvidedSorts() []keyval.Pattern { return n.child().ProvidedSorts() }
func (n *LimitNode) ComputeProperties()             { n.computeChildProperties() }

func (n *LimitNode) Clone() Node {
	out := &LimitNode{Limit: n.Limit}
	n.cloneInto(&out.baseNode)
	return out
}

// SkipNode discards the first Skip results.
type SkipNode struct {
	baseNode

	Skip int64
}

func (n *SkipNode) Kind() NodeKind                 { return KindSkip }
func (n *SkipNode) Fetched() bool                  { return n.child().Fetched() }
func (n *SkipNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *SkipNode) ProvidedSorts() []keyval.Pattern { return n.child().ProvidedSorts() }
func (n *SkipNode) ComputeProperties()             { n.computeChildProperties() }

func (n *SkipNode) Clone() Node {
	out := &SkipNode{Skip: n.Skip}
	n.cloneInto(&out.baseNode)
	return out
}

// ShardingFilterNode drops documents that are not logically owned by this
// shard.
type ShardingFilterNode struct {
	baseNode
}

func (n *ShardingFilterNode) Kind() NodeKind                 { return KindShardingFilter }
func (n *ShardingFilterNode) Fetched() bool                  { return n.child().Fetched() }
func (n *ShardingFilterNode) HasField(field string) bool     { return n.child().HasField(field) }
func (n *ShardingFilterNode) ProvidedSorts() []keyval.Pattern { return n.child().ProvidedSorts() }
func (n *ShardingFilterNode) ComputeProperties()             { n.computeChildProperties() }

func (n *ShardingFilterNode) Clone() Node {
	out := &ShardingFilterNode{}
	n.cloneInto(&out.baseNode)
	return out
}

// ProjectionVariant selects the projection implementation.
type ProjectionVariant int

const (
	// ProjectionDefault handles every projection, covered or not.
	ProjectionDefault ProjectionVariant = iota
	// ProjectionSimple is the fast path over fetched documents for simple
	// projections.
	ProjectionSimple
	// ProjectionCovered is the fast path over raw index keys for simple
	// projections covered by one index.
	ProjectionCovered
)

func (v ProjectionVariant) String() string {
	switch v {
	case ProjectionDefault:
		return "DEFAULT"
	case ProjectionSimple:
		return "SIMPLE_DOC"
	case ProjectionCovered:
		return "COVERED_ONE_INDEX"
	}
	return "UNKNOWN"
}

// ProjectionNode reshapes each result per the projection specification.
type ProjectionNode struct {
	baseNode

	Variant ProjectionVariant
	Proj    *query.Projection

	// CoveredKeyPattern is the key pattern the covered variant reads from,
	// empty otherwise.
	CoveredKeyPattern keyval.Pattern
}

func (n *ProjectionNode) Kind() NodeKind { return KindProjection }
func (n *ProjectionNode) Fetched() bool  { return n.child().Fetched() }

func (n *ProjectionNode) HasField(field string) bool {
	if !n.Proj.KeepsField(field) {
		return false
	}
	return n.child().HasField(field)
}

func (n *ProjectionNode) ProvidedSorts() []keyval.Pattern {
	var out []keyval.Pattern
	for _, sort := range n.child().ProvidedSorts() {
		kept := true
		for _, f := range sort {
			if !n.Proj.KeepsField(f.Field) {
				kept = false
				break
			}
		}
		if kept {
			out = append(out, sort)
		}
	}
	return out
}

func (n *ProjectionNode) ComputeProperties() { n.computeChildProperties() }

func (n *ProjectionNode) Clone() Node {
	out := &ProjectionNode{
		Variant:           n.Variant,
		Proj:              n.Proj,
		CoveredKeyPattern: append(keyval.Pattern(nil), n.CoveredKeyPattern...),
	}
	n.cloneInto(&out.baseNode)
	return out
}

// TreeString renders the tree for logs and test failures.
func TreeString(n Node) string {
	var sb strings.Builder
	writeTree(&sb, n, 0)
	return sb.String()
}

func writeTree(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind().String())
	switch node := n.(type) {
	case *IndexScanNode:
		dir := "forward"
		if node.Direction < 0 {
			dir = "reverse"
		}
		fmt.Fprintf(sb, " %s %s %s [%s]", node.Index.Name, node.Index.KeyPattern, dir, node.Bounds.String())
	case *DistinctScanNode:
		fmt.Fprintf(sb, " %s fieldNo=%d", node.Index.Name, node.FieldNo)
	case *SortNode:
		fmt.Fprintf(sb, " %s limit=%d", node.Pattern, node.Limit)
	case *MergeSortNode:
		fmt.Fprintf(sb, " %s", node.Pattern)
	case *EnsureSortedNode:
		fmt.Fprintf(sb, " %s", node.Pattern)
	case *LimitNode:
		fmt.Fprintf(sb, " %d", node.Limit)
	case *SkipNode:
		fmt.Fprintf(sb, " %d", node.Skip)
	case *ProjectionNode:
		fmt.Fprintf(sb, " %s", node.Variant)
	}
	sb.WriteByte('\n')
	for _, child := range n.Children() {
		writeTree(sb, child, depth+1)
	}
}
