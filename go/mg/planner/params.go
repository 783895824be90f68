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

// Options alter what the analyzer is allowed to produce.
type Options uint32

const (
	// NoBlockingSort rejects solutions that would need a blocking sort
	// stage instead of inserting one.
	NoBlockingSort Options = 1 << iota

	// IncludeShardFilter inserts a stage that drops documents not owned by
	// this shard.
	IncludeShardFilter

	// SplitLimitedSort enables the OR-of-sorts rewrite for ambiguous
	// legacy numToReturn queries.
	SplitLimitedSort

	// NoUncoveredProjections rejects solutions whose projection needs the
	// fetched document.
	NoUncoveredProjections

	// IsCount marks a count-like query whose results are never returned,
	// so no final fetch is needed.
	IsCount
)

// Params carry everything the analyzer needs beyond the query itself.
type Params struct {
	Options Options

	// Indices are the collection's indexes.
	Indices []IndexEntry

	// ShardKey is the shard key pattern, consulted when IncludeShardFilter
	// is set.
	ShardKey keyval.Pattern

	// IndexFiltersApplied is set when index filters restricted plan
	// enumeration.
	IndexFiltersApplied bool

	// Knobs are the planner tunables; nil means defaults.
	Knobs *query.Knobs
}

func (p *Params) knobs() *query.Knobs {
	if p.Knobs != nil {
		return p.Knobs
	}
	return query.DefaultKnobs()
}
