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

// Package query holds the canonical query: the normalized form of a find
// request that the planner and the execution engine agree on, plus the
// process-wide planner tunables.
package query

import (
	"github.com/mangrovedb/mangrove/go/mg/keyval"
)

// Query is a canonical query. It is immutable once built; the planner and
// runner only read it.
type Query struct {
	// Namespace is the fully qualified collection name.
	Namespace string

	// Filter is the planner's view of the match expression. A nil filter
	// matches everything.
	Filter *Predicate

	// Sort is the requested sort order. Empty means no sort was requested.
	Sort keyval.Pattern

	// NaturalSort is set when the request asked for $natural order. The
	// enumerator is expected to have produced a collection scan; the
	// analyzer ignores the sort in that case.
	NaturalSort bool

	// Proj is the requested projection, nil if none.
	Proj *Projection

	// Skip is the number of leading results to discard. Zero means none.
	Skip int64

	// Limit is the hard result limit, nil if none.
	Limit *int64

	// NToReturn carries legacy wire-protocol numToReturn semantics, which
	// ambiguously means either limit or batch size. Nil if absent.
	NToReturn *int64

	// WantMore is false when numToReturn was passed as a negative value,
	// which unambiguously means a hard limit.
	WantMore bool

	// Tailable marks a tailable cursor request.
	Tailable bool

	// Hinted is set when the caller forced an index choice.
	Hinted bool
}

// EffectiveLimit returns the hard limit if one exists: either an explicit
// limit, or a legacy numToReturn with wantMore unset.
func (q *Query) EffectiveLimit() (int64, bool) {
	if q.Limit != nil {
		return *q.Limit, true
	}
	if q.NToReturn != nil && !q.WantMore {
		return *q.NToReturn, true
	}
	return 0, false
}
