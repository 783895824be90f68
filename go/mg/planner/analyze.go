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

// Package planner turns raw candidate access paths into finalized, ordering
// correct query solutions.
//
// The plan enumerator (not part of this package) produces bare trees of
// scans and unions that answer the predicate. AnalyzeDataAccess then
// attaches everything else the query asked for: shard filtering, sort
// provision (by scan reversal, by bounds explosion, or by an explicit sort
// stage), skip, projection and limit stages, and a final fetch when the
// caller needs full documents.
package planner

import (
	"log/slog"

	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// AnalyzeDataAccess post-processes a raw candidate tree into a complete
// QuerySolution. A nil return means the candidate cannot satisfy the query
// under the given params (for example, it would need a blocking sort and
// NoBlockingSort is set); that is a planning outcome, not an error.
//
// The returned solution owns the tree. Re-running analysis over an
// already-analyzed tree for the same query and params leaves it unchanged.
func AnalyzeDataAccess(q *query.Query, params *Params, root Node) *QuerySolution {
	if root == nil {
		return nil
	}

	soln := &QuerySolution{IndexFilterApplied: params.IndexFiltersApplied}

	root.ComputeProperties()

	analyzeGeo(params, root)

	// The tree finds all matching documents. Now bolt on the
	// transformations the request asked for.

	if params.Options&IncludeShardFilter != 0 && !hasNodeOfKind(root, KindShardingFilter) {
		root = analyzeShardFilter(params, root)
	}

	root, hasSortStage, ok := analyzeSort(q, params, root)
	if !ok {
		// A blocking sort was needed and disallowed.
		return nil
	}

	// A solution is blocking if it has a blocking sort stage or a hashed
	// AND stage.
	soln.HasBlockingStage = hasNodeOfKind(root, KindSort) || hasNodeOfKind(root, KindAndHash)

	if q.Skip > 0 && !hasNodeOfKind(root, KindSkip) {
		skip := &SkipNode{Skip: q.Skip}
		skip.AddChild(root)
		root = skip
	}

	if q.Proj != nil {
		if !hasNodeOfKind(root, KindProjection) {
			root = analyzeProjection(q, root, hasSortStage)
		}
		if root.Fetched() && params.Options&NoUncoveredProjections != 0 {
			return nil
		}
	} else if !root.Fetched() && params.Options&IsCount == 0 {
		// No projection: the caller wants entire documents.
		root = NewFetchNode(root)
	}

	// When there is both a blocking sort and a limit, the sort enforces
	// the limit. Otherwise a hard limit needs its own stage.
	if !hasNodeOfKind(root, KindSort) && !hasNodeOfKind(root, KindLimit) {
		if limit, ok := q.EffectiveLimit(); ok {
			ln := &LimitNode{Limit: limit}
			ln.AddChild(root)
			root = ln
		}
	}

	soln.Root = root
	if log.Enabled(slog.LevelDebug) {
		log.DebugS("analyzed data access", "namespace", q.Namespace, "solution", TreeString(root))
	}
	return soln
}

// analyzeGeo marks geo predicates whose field is indexed by a 2dsphere
// index of version 3 or newer: their geometry was validated on insert, so
// matching can skip re-validation. This is a pure annotation pass.
func analyzeGeo(params *Params, root Node) {
	var geoFields map[string]bool
	for _, index := range params.Indices {
		if index.Geo2DSphereVersion < Geo2DSphereV3 {
			continue
		}
		for _, f := range index.KeyPattern {
			if !f.Ordinal() {
				if geoFields == nil {
					geoFields = make(map[string]bool)
				}
				geoFields[f.Field] = true
			}
		}
	}
	if geoFields == nil {
		return
	}
	markGeoSkipValidation(geoFields, root)
}

func markGeoSkipValidation(geoFields map[string]bool, root Node) {
	markGeoPredicates(geoFields, root.Filter())
	for _, child := range root.Children() {
		markGeoSkipValidation(geoFields, child)
	}
}

func markGeoPredicates(geoFields map[string]bool, p *query.Predicate) {
	if p == nil {
		return
	}
	if p.Kind == query.PredicateGeo && geoFields[p.Path] {
		p.SkipValidation = true
	}
	for _, child := range p.Children {
		markGeoPredicates(geoFields, child)
	}
}

// analyzeShardFilter inserts the stage that drops documents outside this
// shard's ownership partition, fetching first if the shard key is not
// covered by the tree.
func analyzeShardFilter(params *Params, root Node) Node {
	if !root.Fetched() {
		for _, f := range params.ShardKey {
			if !root.HasField(f.Field) {
				root = NewFetchNode(root)
				break
			}
		}
	}
	sfn := &ShardingFilterNode{}
	sfn.AddChild(root)
	return sfn
}
