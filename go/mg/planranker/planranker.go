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

// Package planranker scores candidate plans after a trial period.
package planranker

import (
	"sort"

	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/queryexec"
)

// epsilon separates genuinely better scores from noise; two scores closer
// than this are a tie.
const epsilon = 1e-10

// tieBreakerEpsilon is the nudge granted for structural advantages. It is
// deliberately far above epsilon so a structural edge decides otherwise
// tied scores.
const tieBreakerEpsilon = 1e-4

// Ranker scores each candidate by how productive it was during the trial:
// the fraction of work steps that produced a result, plus a large bonus
// for finishing outright and small structural nudges for plans that avoid
// blocking stages and fetches.
type Ranker struct{}

var _ queryexec.PlanRanker = Ranker{}

// PickBest ranks candidates best-first and flags ties for the cache-write
// policy. Failed candidates are excluded from the ranking.
func (Ranker) PickBest(candidates []*queryexec.CandidatePlan) (*queryexec.Decision, error) {
	type scored struct {
		idx   int
		score float64
	}
	var ranking []scored
	for i, cand := range candidates {
		if cand.Failed {
			continue
		}
		score := scoreCandidate(cand)
		log.V(2).Infof("candidate %d (%v) scored %v", i, cand.Solution, score)
		ranking = append(ranking, scored{idx: i, score: score})
	}
	if len(ranking) == 0 {
		return nil, mgerrors.New(mgerrors.Internal, "no surviving candidates to rank")
	}

	// Stable keeps submission order among equal scores, so earlier
	// candidates win exact ties.
	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].score > ranking[b].score
	})

	decision := &queryexec.Decision{
		CandidateOrder: make([]int, len(ranking)),
		Scores:         make([]float64, len(ranking)),
	}
	for i, r := range ranking {
		decision.CandidateOrder[i] = r.idx
		decision.Scores[i] = r.score
	}
	if len(ranking) > 1 && ranking[0].score-ranking[1].score < epsilon {
		decision.TieForBest = true
	}
	return decision, nil
}

func scoreCandidate(cand *queryexec.CandidatePlan) float64 {
	// The base score keeps even a fully unproductive plan above zero,
	// which reserves zero for plans that cannot run at all.
	baseScore := 1.0

	stats := cand.Root.Stats()
	workUnits := float64(stats.Works)
	if workUnits == 0 {
		workUnits = 1
	}
	productivity := float64(len(cand.Results)) / workUnits

	// Finishing the whole result set inside the trial beats any
	// extrapolation from partial progress.
	eofBonus := 0.0
	if cand.Root.IsEOF() {
		eofBonus = 1.0
	}

	noSortBonus := tieBreakerEpsilon
	if hasBlockingNode(cand.Solution.Root) {
		noSortBonus = 0
	}
	noFetchBonus := tieBreakerEpsilon
	if hasNodeKind(cand.Solution.Root, planner.KindFetch) {
		noFetchBonus = 0
	}

	return baseScore + productivity + eofBonus + noSortBonus + noFetchBonus
}

func hasBlockingNode(root planner.Node) bool {
	return hasNodeKind(root, planner.KindSort) || hasNodeKind(root, planner.KindAndHash)
}

func hasNodeKind(root planner.Node, kind planner.NodeKind) bool {
	if root == nil {
		return false
	}
	if root.Kind() == kind {
		return true
	}
	for _, child := range root.Children() {
		if hasNodeKind(child, kind) {
			return true
		}
	}
	return false
}
