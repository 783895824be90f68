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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

func testIndex(name string, pattern keyval.Pattern) IndexEntry {
	return IndexEntry{Name: name, KeyPattern: pattern}
}

func pointsList(field string, vals ...float64) OrderedIntervalList {
	oil := OrderedIntervalList{Field: field}
	for _, v := range vals {
		oil.Intervals = append(oil.Intervals, PointInterval(keyval.NewNumber(v)))
	}
	return oil
}

func fullList(field string) OrderedIntervalList {
	return OrderedIntervalList{Field: field, Intervals: []Interval{FullInterval()}}
}

func scanWithBounds(index IndexEntry, fields ...OrderedIntervalList) *IndexScanNode {
	isn := NewIndexScanNode(index)
	isn.Bounds.Fields = fields
	isn.ComputeProperties()
	return isn
}

func int64p(v int64) *int64 { return &v }

// pathToLeaf returns the chain of node kinds from root down the first
// child at each level.
func pathToLeaf(root Node) []NodeKind {
	var kinds []NodeKind
	for n := root; n != nil; {
		kinds = append(kinds, n.Kind())
		if len(n.Children()) == 0 {
			break
		}
		n = n.Children()[0]
	}
	return kinds
}

func TestAnalyzeSortAlreadyProvided(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{Namespace: "test.c", Sort: keyval.Pattern{keyval.Asc("a")}}
	params := &Params{Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.False(t, soln.HasBlockingStage)
	assert.False(t, hasNodeOfKind(soln.Root, KindSort))
	assert.Equal(t, []NodeKind{KindFetch, KindIndexScan}, pathToLeaf(soln.Root))
}

func TestAnalyzeSortByReversingScan(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{Namespace: "test.c", Sort: keyval.Pattern{keyval.Desc("a")}}
	params := &Params{Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.False(t, soln.HasBlockingStage)
	assert.False(t, hasNodeOfKind(soln.Root, KindSort))

	var leaves []Node
	leafNodes(soln.Root, &leaves)
	require.Len(t, leaves, 1)
	assert.Equal(t, -1, leaves[0].(*IndexScanNode).Direction)
}

func TestAnalyzeBlockingSort(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Sort:      keyval.Pattern{keyval.Asc("b")},
		Limit:     int64p(5),
		Skip:      2,
	}
	params := &Params{Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.True(t, soln.HasBlockingStage)
	assert.Equal(t,
		[]NodeKind{KindSkip, KindSort, KindSortKeyGenerator, KindFetch, KindIndexScan},
		pathToLeaf(soln.Root))

	// The sort keeps skip+limit results so the skip stage above can drop
	// its share; no separate limit stage appears.
	var sort *SortNode
	walkFirstChildren(soln.Root, func(n Node) {
		if sn, ok := n.(*SortNode); ok {
			sort = sn
		}
	})
	require.NotNil(t, sort)
	assert.EqualValues(t, 7, sort.Limit)
	assert.False(t, hasNodeOfKind(soln.Root, KindLimit))
}

func walkFirstChildren(root Node, fn func(Node)) {
	for n := root; n != nil; {
		fn(n)
		if len(n.Children()) == 0 {
			return
		}
		n = n.Children()[0]
	}
}

func TestAnalyzeNoBlockingSortRejects(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{Namespace: "test.c", Sort: keyval.Pattern{keyval.Asc("b")}}
	params := &Params{Options: NoBlockingSort, Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	assert.Nil(t, soln)
}

func TestAnalyzeCoveredProjection(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Proj:      &query.Projection{RequiredFields: []string{"a"}, Inclusion: true},
	}
	params := &Params{Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.False(t, hasNodeOfKind(soln.Root, KindFetch))

	require.Equal(t, KindProjection, soln.Root.Kind())
	pn := soln.Root.(*ProjectionNode)
	assert.Equal(t, ProjectionCovered, pn.Variant)
	assert.True(t, pn.CoveredKeyPattern.Equal(idx.KeyPattern))
}

func TestAnalyzeUncoveredProjection(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Proj:      &query.Projection{RequiredFields: []string{"b"}, Inclusion: true},
	}

	soln := AnalyzeDataAccess(q, &Params{Indices: []IndexEntry{idx}},
		scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.True(t, hasNodeOfKind(soln.Root, KindFetch))
	assert.Equal(t, ProjectionSimple, soln.Root.(*ProjectionNode).Variant)

	// With uncovered projections disallowed, the same query has no
	// solution.
	soln = AnalyzeDataAccess(q,
		&Params{Options: NoUncoveredProjections, Indices: []IndexEntry{idx}},
		scanWithBounds(idx, fullList("a")))
	assert.Nil(t, soln)
}

func TestAnalyzeExplodedCoveredProjection(t *testing.T) {
	idx := testIndex("a_1_b_1", keyval.Pattern{keyval.Asc("a"), keyval.Asc("b")})
	q := &query.Query{
		Namespace: "test.c",
		Sort:      keyval.Pattern{keyval.Asc("b")},
		Proj:      &query.Projection{RequiredFields: []string{"a", "b"}, Inclusion: true},
	}
	params := &Params{Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params,
		scanWithBounds(idx, pointsList("a", 1, 2), fullList("b")))
	require.NotNil(t, soln)
	require.True(t, hasNodeOfKind(soln.Root, KindMergeSort))
	assert.False(t, hasNodeOfKind(soln.Root, KindFetch))

	// The merge-sorted fan covers both fields but has no single index key
	// to read them from, and its output is not fetched either; neither
	// fast-path projection can serve it.
	require.Equal(t, KindProjection, soln.Root.Kind())
	pn := soln.Root.(*ProjectionNode)
	assert.Equal(t, ProjectionDefault, pn.Variant)
	assert.False(t, pn.Children()[0].Fetched())
}

func TestAnalyzeReturnKeyProjectionSkipsFetch(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Proj: &query.Projection{
			RequiredFields: []string{"b"},
			Inclusion:      true,
			WantIndexKey:   true,
		},
	}

	soln := AnalyzeDataAccess(q, &Params{Indices: []IndexEntry{idx}},
		scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	// The output is the index key, so the uncovered field does not force a
	// fetch.
	assert.False(t, hasNodeOfKind(soln.Root, KindFetch))
	require.Equal(t, KindProjection, soln.Root.Kind())
	assert.Equal(t, ProjectionDefault, soln.Root.(*ProjectionNode).Variant)

	var leaves []Node
	leafNodes(soln.Root, &leaves)
	require.Len(t, leaves, 1)
	assert.True(t, leaves[0].(*IndexScanNode).AddKeyMetadata)
}

func TestAnalyzeCountSkipsFinalFetch(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{Namespace: "test.c"}
	params := &Params{Options: IsCount, Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.Equal(t, KindIndexScan, soln.Root.Kind())
}

func TestAnalyzeShardFilter(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{Namespace: "test.c"}
	params := &Params{
		Options:  IncludeShardFilter,
		Indices:  []IndexEntry{idx},
		ShardKey: keyval.Pattern{keyval.Asc("b")},
	}

	// The shard key is not covered by the index, so the filter sits above
	// a fetch.
	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.Equal(t,
		[]NodeKind{KindShardingFilter, KindFetch, KindIndexScan},
		pathToLeaf(soln.Root))

	// A covered shard key filters raw index entries and fetches after.
	params.ShardKey = keyval.Pattern{keyval.Asc("a")}
	soln = AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.Equal(t,
		[]NodeKind{KindFetch, KindShardingFilter, KindIndexScan},
		pathToLeaf(soln.Root))
}

func TestAnalyzeSplitLimitedSort(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Sort:      keyval.Pattern{keyval.Asc("b")},
		NToReturn: int64p(3),
		WantMore:  true,
	}
	params := &Params{Options: SplitLimitedSort, Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.True(t, soln.HasBlockingStage)
	require.True(t, hasNodeOfKind(soln.Root, KindEnsureSorted))

	var orn *OrNode
	var walk func(Node)
	walk = func(n Node) {
		if o, ok := n.(*OrNode); ok {
			orn = o
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(soln.Root)
	require.NotNil(t, orn)
	assert.True(t, orn.Dedup)
	require.Len(t, orn.Children(), 2)

	// Top-k branch first, unlimited branch second.
	first := orn.Children()[0].(*SortNode)
	second := orn.Children()[1].(*SortNode)
	assert.EqualValues(t, 3, first.Limit)
	assert.Zero(t, second.Limit)
}

func TestAnalyzeSplitLimitedSortExcludesText(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	q := &query.Query{
		Namespace: "test.c",
		Filter:    &query.Predicate{Kind: query.PredicateText, Path: "a"},
		Sort:      keyval.Pattern{keyval.Asc("b")},
		NToReturn: int64p(3),
		WantMore:  true,
	}
	params := &Params{Options: SplitLimitedSort, Indices: []IndexEntry{idx}}

	soln := AnalyzeDataAccess(q, params, scanWithBounds(idx, fullList("a")))
	require.NotNil(t, soln)
	assert.False(t, hasNodeOfKind(soln.Root, KindEnsureSorted))
	assert.False(t, hasNodeOfKind(soln.Root, KindOr))
}

func TestAnalyzeIdempotent(t *testing.T) {
	idx := testIndex("a_1", keyval.Pattern{keyval.Asc("a")})
	cases := []struct {
		name string
		q    *query.Query
		opts Options
	}{
		{
			name: "blocking sort with skip and limit",
			q: &query.Query{
				Namespace: "test.c",
				Sort:      keyval.Pattern{keyval.Asc("b")},
				Limit:     int64p(5),
				Skip:      2,
			},
		},
		{
			name: "projection with limit",
			q: &query.Query{
				Namespace: "test.c",
				Proj:      &query.Projection{RequiredFields: []string{"a"}, Inclusion: true},
				Limit:     int64p(3),
			},
		},
		{
			name: "shard filter",
			q:    &query.Query{Namespace: "test.c"},
			opts: IncludeShardFilter,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := &Params{
				Options:  tc.opts,
				Indices:  []IndexEntry{idx},
				ShardKey: keyval.Pattern{keyval.Asc("a")},
			}
			soln := AnalyzeDataAccess(tc.q, params, scanWithBounds(idx, fullList("a")))
			require.NotNil(t, soln)
			first := TreeString(soln.Root)

			again := AnalyzeDataAccess(tc.q, params, soln.Root)
			require.NotNil(t, again)
			assert.Equal(t, first, TreeString(again.Root))
			assert.Equal(t, soln.HasBlockingStage, again.HasBlockingStage)
		})
	}
}

func TestAnalyzeGeoSkipValidation(t *testing.T) {
	idx := testIndex("loc_2dsphere", keyval.Pattern{{Field: "loc", Dir: 0}})
	idx.Geo2DSphereVersion = Geo2DSphereV3

	geo := &query.Predicate{Kind: query.PredicateGeo, Path: "loc"}
	q := &query.Query{Namespace: "test.c", Filter: geo}
	params := &Params{Indices: []IndexEntry{idx}}

	root := NewIndexScanNode(idx)
	root.Bounds.Fields = []OrderedIntervalList{fullList("loc")}
	root.SetFilter(geo)

	soln := AnalyzeDataAccess(q, params, root)
	require.NotNil(t, soln)
	assert.True(t, geo.SkipValidation)

	// Older index versions did not validate on insert.
	old := testIndex("loc_2dsphere_v2", keyval.Pattern{{Field: "loc", Dir: 0}})
	old.Geo2DSphereVersion = 2
	geo2 := &query.Predicate{Kind: query.PredicateGeo, Path: "loc"}
	q2 := &query.Query{Namespace: "test.c", Filter: geo2}

	root2 := NewIndexScanNode(old)
	root2.Bounds.Fields = []OrderedIntervalList{fullList("loc")}
	root2.SetFilter(geo2)
	require.NotNil(t, AnalyzeDataAccess(q2, &Params{Indices: []IndexEntry{old}}, root2))
	assert.False(t, geo2.SkipValidation)
}
