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

package query

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default knob values. They match the behavior of a freshly started server.
const (
	// DefaultTrialWorks is the minimum number of work units each plan
	// candidate is granted during the trial period.
	DefaultTrialWorks = 10000
	// DefaultTrialCollFraction scales the trial work budget up for large
	// collections: the budget is at least this fraction of the record count.
	DefaultTrialCollFraction = 0.3
	// DefaultTrialMaxResults is the number of buffered results at which a
	// candidate stops the trial.
	DefaultTrialMaxResults = 101
	// DefaultMaxScansToExplode caps the fan-out of the bounds-explosion
	// rewrite.
	DefaultMaxScansToExplode = 200
)

// Knobs are the process-wide planner tunables. They are passed explicitly so
// that plan trials are deterministic and testable in isolation.
type Knobs struct {
	// TrialWorks is the minimum work-step budget of a plan trial.
	TrialWorks int

	// TrialCollFraction raises the work budget to this fraction of the
	// collection's record count when that is larger than TrialWorks.
	TrialCollFraction float64

	// TrialMaxResults is the per-candidate buffered-result ceiling of a
	// trial, before capping by the query's own limit.
	TrialMaxResults int

	// MaxScansToExplode is the largest total scan count the
	// bounds-explosion rewrite is allowed to create.
	MaxScansToExplode int

	// SplitLimitedSort enables the OR-of-sorts rewrite that resolves the
	// legacy numToReturn limit/batchSize ambiguity.
	SplitLimitedSort bool
}

// DefaultKnobs returns the documented default tunables.
func DefaultKnobs() *Knobs {
	return &Knobs{
		TrialWorks:        DefaultTrialWorks,
		TrialCollFraction: DefaultTrialCollFraction,
		TrialMaxResults:   DefaultTrialMaxResults,
		MaxScansToExplode: DefaultMaxScansToExplode,
		SplitLimitedSort:  true,
	}
}

// RegisterFlags installs the knob flags on the given FlagSet.
func (k *Knobs) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&k.TrialWorks, "query-plan-trial-works", k.TrialWorks, "minimum number of work units granted to each candidate plan during the trial period")
	fs.Float64Var(&k.TrialCollFraction, "query-plan-trial-coll-fraction", k.TrialCollFraction, "fraction of the collection record count used as the trial work budget for large collections")
	fs.IntVar(&k.TrialMaxResults, "query-plan-trial-max-results", k.TrialMaxResults, "number of buffered results at which a candidate plan ends the trial period")
	fs.IntVar(&k.MaxScansToExplode, "query-plan-max-scans-to-explode", k.MaxScansToExplode, "largest scan fan-out the sort-by-explosion rewrite may produce")
	fs.BoolVar(&k.SplitLimitedSort, "query-plan-split-limited-sort", k.SplitLimitedSort, "enable the split limited sort rewrite for ambiguous legacy numToReturn queries")
}

// Viper keys for the knob values.
const (
	keyTrialWorks        = "query.plan.trial_works"
	keyTrialCollFraction = "query.plan.trial_coll_fraction"
	keyTrialMaxResults   = "query.plan.trial_max_results"
	keyMaxScansToExplode = "query.plan.max_scans_to_explode"
	keySplitLimitedSort  = "query.plan.split_limited_sort"
)

// KnobsFromViper reads knob overrides from the given viper instance. Keys
// that are not set keep their defaults.
func KnobsFromViper(v *viper.Viper) *Knobs {
	k := DefaultKnobs()
	v.SetDefault(keyTrialWorks, k.TrialWorks)
	v.SetDefault(keyTrialCollFraction, k.TrialCollFraction)
	v.SetDefault(keyTrialMaxResults, k.TrialMaxResults)
	v.SetDefault(keyMaxScansToExplode, k.MaxScansToExplode)
	v.SetDefault(keySplitLimitedSort, k.SplitLimitedSort)

	k.TrialWorks = v.GetInt(keyTrialWorks)
	k.TrialCollFraction = v.GetFloat64(keyTrialCollFraction)
	k.TrialMaxResults = v.GetInt(keyTrialMaxResults)
	k.MaxScansToExplode = v.GetInt(keyMaxScansToExplode)
	k.SplitLimitedSort = v.GetBool(keySplitLimitedSort)
	return k
}
