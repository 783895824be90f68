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

// SolutionCacheData is the index-tagged form of a solution that the plan
// cache can replay against a later query with the same shape. It is
// produced by the plan enumerator; solutions without it cannot be cached.
type SolutionCacheData struct {
	// IndexName is the index the cached access path uses, empty for a
	// whole-collection solution.
	IndexName string

	// Direction is the cached scan direction.
	Direction int

	// WholeIXSoln marks a solution that scans an entire index to provide a
	// sort rather than to answer a predicate.
	WholeIXSoln bool
}

// QuerySolution is one complete physical plan for a query. It is immutable
// after analysis, except for the explicit in-place scan reversal the
// analyzer itself applies.
type QuerySolution struct {
	Root Node

	// IndexFilterApplied is set when index filters restricted the
	// candidate set that produced this solution. Cached entries remember
	// it so they are not replayed once the filters change.
	IndexFilterApplied bool

	// HasBlockingStage is set when the tree contains a stage that buffers
	// all input before producing output.
	HasBlockingStage bool

	// CacheData is the cache-compatible form of this solution, nil when the
	// solution cannot be written to the plan cache.
	CacheData *SolutionCacheData
}

func (s *QuerySolution) String() string {
	if s == nil || s.Root == nil {
		return "(empty solution)"
	}
	return TreeString(s.Root)
}
