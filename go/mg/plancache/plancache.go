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

// Package plancache stores plan competition outcomes keyed by query shape,
// so later queries of the same shape can skip the competition.
package plancache

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/query"
	"github.com/mangrovedb/mangrove/go/mg/queryexec"
)

const (
	// DefaultExpiration is the sentinel for the cache-wide default TTL.
	DefaultExpiration = cache.DefaultExpiration
	// NoExpiration makes entries never expire.
	NoExpiration = cache.NoExpiration
)

// Config is the configuration for a plan cache.
type Config struct {
	// DefaultExpiration is how long entries live. Use NoExpiration to keep
	// them until evicted explicitly.
	DefaultExpiration time.Duration `json:"default_expiration"`
	// CleanupInterval is how often expired entries are removed.
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// Entry is one cached competition outcome.
type Entry struct {
	// ID distinguishes successive entries for the same shape, so feedback
	// about a replaced entry can be discarded.
	ID uuid.UUID

	// Solutions carries each ranked candidate's cache data, winner first.
	Solutions []*planner.SolutionCacheData

	// Decision is how the competition was ranked.
	Decision *queryexec.Decision

	// Timestamp is when the entry was written.
	Timestamp time.Time
}

// PlanCache maps query shapes to competition outcomes. It is safe for
// concurrent use.
type PlanCache struct {
	cache *cache.Cache
}

var _ queryexec.PlanCache = (*PlanCache)(nil)

// New creates an empty plan cache.
func New(cfg Config) *PlanCache {
	return &PlanCache{
		cache: cache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
	}
}

// ShouldCacheQuery reports whether the query's shape is cacheable. Hinted
// queries bypass planning, and tailable or natural-order cursors have no
// plan choice worth remembering.
func (pc *PlanCache) ShouldCacheQuery(q *query.Query) bool {
	if q.Namespace == "" {
		return false
	}
	if q.Hinted || q.Tailable || q.NaturalSort {
		return false
	}
	return true
}

// Set stores a competition outcome for the query's shape, replacing any
// previous entry. Solutions must be in ranked order, winner first, and
// every one must carry cache data; otherwise nothing is stored.
func (pc *PlanCache) Set(q *query.Query, solutions []*planner.QuerySolution, decision *queryexec.Decision, when time.Time) error {
	if len(solutions) == 0 {
		return mgerrors.New(mgerrors.InvalidArgument, "no solutions to cache")
	}
	if decision == nil {
		return mgerrors.New(mgerrors.InvalidArgument, "no ranking decision to cache")
	}

	data := make([]*planner.SolutionCacheData, len(solutions))
	for i, soln := range solutions {
		if soln.CacheData == nil {
			return mgerrors.Errorf(mgerrors.InvalidArgument,
				"solution %d has no cache data; refusing a partial entry", i)
		}
		data[i] = soln.CacheData
	}

	entry := &Entry{
		ID:        uuid.New(),
		Solutions: data,
		Decision:  decision,
		Timestamp: when,
	}
	pc.cache.Set(q.Shape().Key(), entry, DefaultExpiration)
	log.V(2).Infof("cached plan %v for shape %v", entry.ID, q.Shape())
	return nil
}

// Get returns the entry for the query's shape.
func (pc *PlanCache) Get(q *query.Query) (*Entry, bool) {
	v, ok := pc.cache.Get(q.Shape().Key())
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Remove evicts the entry for the query's shape. Evicting an absent shape
// is a no-op.
func (pc *PlanCache) Remove(q *query.Query) {
	pc.cache.Delete(q.Shape().Key())
}

// Clear drops every entry.
func (pc *PlanCache) Clear() {
	pc.cache.Flush()
}

// Len returns the number of live entries.
func (pc *PlanCache) Len() int {
	return pc.cache.ItemCount()
}
