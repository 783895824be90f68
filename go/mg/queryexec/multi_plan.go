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

package queryexec

import (
	"context"
	"math"
	"time"

	"github.com/sjmudd/stopwatch"

	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// CachingMode controls whether a competition's outcome is written to the
// plan cache.
type CachingMode int

const (
	// CacheAlways writes the outcome unconditionally.
	CacheAlways CachingMode = iota

	// CacheSometimes writes the outcome unless the competition was too
	// close to call or the winner produced nothing during the trial.
	CacheSometimes

	// CacheNever writes nothing.
	CacheNever
)

func (m CachingMode) String() string {
	switch m {
	case CacheAlways:
		return "always"
	case CacheSometimes:
		return "sometimes"
	case CacheNever:
		return "never"
	}
	return "unknown"
}

// CandidatePlan pairs a solution with its executable stage tree plus the
// trial state the competition accumulates for it.
type CandidatePlan struct {
	Solution *planner.QuerySolution
	Root     Stage

	// Results buffers working set IDs the plan produced during the trial,
	// served to the caller before the plan is worked further.
	Results []WorkingSetID

	// Failed is set when the plan hit a failure during the trial. A failed
	// plan is out of the competition but its trial stats still count.
	Failed bool

	failure error
	works   uint64
}

// Decision records how a competition was ranked, for the plan cache and
// for diagnostics.
type Decision struct {
	// CandidateOrder holds original candidate indexes, best first. Failed
	// candidates are excluded.
	CandidateOrder []int

	// Scores[i] is the score of candidate CandidateOrder[i].
	Scores []float64

	// TieForBest is set when the top scores were too close to call.
	TieForBest bool
}

// Winner returns the original index of the ranked winner.
func (d *Decision) Winner() int { return d.CandidateOrder[0] }

// PlanRanker picks the best candidate after the trial period.
type PlanRanker interface {
	// PickBest ranks the candidates by their trial statistics. At least
	// one candidate is not failed.
	PickBest(candidates []*CandidatePlan) (*Decision, error)
}

// PlanCache is the subset of the plan cache the multi-planner writes to.
type PlanCache interface {
	// ShouldCacheQuery reports whether the query's shape is cacheable at
	// all.
	ShouldCacheQuery(q *query.Query) bool

	// Set stores a competition outcome. Solutions are in ranked order,
	// winner first.
	Set(q *query.Query, solutions []*planner.QuerySolution, decision *Decision, when time.Time) error

	// Remove evicts the entry for the query's shape, if any.
	Remove(q *query.Query)
}

// CollectionInfo is what the trial budget needs to know about the
// collection.
type CollectionInfo interface {
	NumRecords() int64
}

// TrialWorkBudget returns the work-step budget of a plan trial: a fixed
// floor, raised for large collections so that a plan touching a fraction
// of the collection can still finish.
func TrialWorkBudget(knobs *query.Knobs, coll CollectionInfo) int {
	budget := knobs.TrialWorks
	if coll != nil {
		byFraction := int(math.Ceil(knobs.TrialCollFraction * float64(coll.NumRecords())))
		if byFraction > budget {
			budget = byFraction
		}
	}
	return budget
}

// TrialNumResults returns how many buffered results end a candidate's
// trial early: the query's own limit when it is smaller than the default
// ceiling.
func TrialNumResults(knobs *query.Knobs, q *query.Query) int {
	ceiling := knobs.TrialMaxResults
	limit, ok := q.EffectiveLimit()
	if !ok && q.NToReturn != nil {
		limit, ok = *q.NToReturn, true
	}
	if ok && limit > 0 && limit < int64(ceiling) {
		return int(limit)
	}
	return ceiling
}

// MultiPlanStage races candidate plans for a trial period, then executes
// the winner. If the winner is a blocking plan that produced nothing
// during the trial, a non-blocking candidate is kept as a backup and
// swapped in should the winner fail.
type MultiPlanStage struct {
	CommonStats

	query *query.Query
	coll  CollectionInfo
	knobs *query.Knobs

	ranker      PlanRanker
	planCache   PlanCache
	cachingMode CachingMode
	metrics     *Metrics

	candidates []*CandidatePlan
	failures   int
	lastFailed *CandidatePlan

	bestPlanIdx   int
	backupPlanIdx int
	usedBackup    bool
	decision      *Decision

	trialDuration   time.Duration
	trialWorkBudget int
}

// MultiPlanOption configures a MultiPlanStage.
type MultiPlanOption func(*MultiPlanStage)

// WithPlanCache wires the cache the competition outcome is written to.
func WithPlanCache(pc PlanCache, mode CachingMode) MultiPlanOption {
	return func(s *MultiPlanStage) {
		s.planCache = pc
		s.cachingMode = mode
	}
}

// WithMetrics wires the stage's exported counters.
func WithMetrics(m *Metrics) MultiPlanOption {
	return func(s *MultiPlanStage) { s.metrics = m }
}

// WithKnobs overrides the default tunables.
func WithKnobs(k *query.Knobs) MultiPlanOption {
	return func(s *MultiPlanStage) { s.knobs = k }
}

// NewMultiPlanStage returns an empty competition for the given query.
// Candidates are added with AddPlan; PickBestPlan runs the trial.
func NewMultiPlanStage(q *query.Query, coll CollectionInfo, ranker PlanRanker, opts ...MultiPlanOption) *MultiPlanStage {
	s := &MultiPlanStage{
		query:         q,
		coll:          coll,
		knobs:         query.DefaultKnobs(),
		ranker:        ranker,
		cachingMode:   CacheNever,
		bestPlanIdx:   -1,
		backupPlanIdx: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPlan enters a candidate into the competition. Plans must be added
// before PickBestPlan.
func (s *MultiPlanStage) AddPlan(soln *planner.QuerySolution, root Stage) {
	s.candidates = append(s.candidates, &CandidatePlan{Solution: soln, Root: root})
}

// BestPlanChosen reports whether the trial has run and picked a winner.
func (s *MultiPlanStage) BestPlanChosen() bool { return s.bestPlanIdx >= 0 }

// BestPlanIdx returns the winner's original candidate index.
func (s *MultiPlanStage) BestPlanIdx() (int, bool) {
	if s.bestPlanIdx < 0 {
		return 0, false
	}
	return s.bestPlanIdx, true
}

// BestSolution returns the winning solution, nil before the trial.
func (s *MultiPlanStage) BestSolution() *planner.QuerySolution {
	if s.bestPlanIdx < 0 {
		return nil
	}
	return s.candidates[s.bestPlanIdx].Solution
}

// HasBackupPlan reports whether a backup candidate is armed.
func (s *MultiPlanStage) HasBackupPlan() bool { return s.backupPlanIdx >= 0 }

// Decision returns the competition's ranking, nil before PickBestPlan.
func (s *MultiPlanStage) Decision() *Decision { return s.decision }

// PickBestPlan runs the trial period, ranks the candidates, arms a backup
// when appropriate, and writes the outcome to the plan cache per the
// caching mode.
func (s *MultiPlanStage) PickBestPlan(ctx context.Context, policy YieldPolicy) error {
	if len(s.candidates) == 0 {
		return mgerrors.New(mgerrors.FailedPrecondition, "multi-plan stage has no candidate plans")
	}
	if s.BestPlanChosen() {
		return mgerrors.New(mgerrors.FailedPrecondition, "best plan already chosen")
	}

	// Work each candidate in round-robin for a bounded number of rounds.
	// The trial stops early when any candidate fills its result buffer or
	// reaches EOF.
	numWorks := TrialWorkBudget(s.knobs, s.coll)
	numResults := TrialNumResults(s.knobs, s.query)
	s.trialWorkBudget = numWorks

	sw := stopwatch.NewNamedStopwatch()
	sw.AddMany([]string{"trial"})
	sw.Start("trial")

	for i := 0; i < numWorks; i++ {
		moreToDo, err := s.workAllPlans(ctx, numResults, policy)
		if err != nil {
			sw.Stop("trial")
			if s.metrics != nil {
				s.metrics.TrialFailuresTotal.Inc()
			}
			return err
		}
		if !moreToDo {
			break
		}
	}

	sw.Stop("trial")
	s.trialDuration = sw.Elapsed("trial")
	if s.metrics != nil {
		s.metrics.TrialsTotal.Inc()
		s.metrics.TrialDuration.Observe(s.trialDuration.Seconds())
	}

	decision, err := s.ranker.PickBest(s.candidates)
	if err != nil {
		return mgerrors.Wrap(err, "ranking candidate plans")
	}
	s.bestPlanIdx = decision.Winner()
	s.decision = decision

	winner := s.candidates[s.bestPlanIdx]
	log.V(2).Infof("winning solution: %v", winner.Solution)

	// A blocking winner that buffered nothing during the trial may block
	// forever at runtime. Keep the first non-blocking candidate around as
	// an escape hatch.
	if winner.Solution.HasBlockingStage && len(winner.Results) == 0 {
		log.V(2).Infof("winner has blocking stage, looking for backup plan...")
		for i, cand := range s.candidates {
			if cand.Failed || cand.Solution.HasBlockingStage {
				continue
			}
			log.V(2).Infof("backup child: %d", i)
			s.backupPlanIdx = i
			break
		}
	}

	s.updatePlanCache(decision, winner)
	return nil
}

func (s *MultiPlanStage) updatePlanCache(decision *Decision, winner *CandidatePlan) {
	if s.planCache == nil || s.cachingMode == CacheNever {
		return
	}

	canCache := true
	if s.cachingMode == CacheSometimes {
		if decision.TieForBest {
			log.V(2).Infof("not caching plan for %s: the best plan was a tie", s.query.Namespace)
			canCache = false
		}
		if len(winner.Results) == 0 {
			log.V(2).Infof("not caching plan for %s: the winner produced no results during the trial", s.query.Namespace)
			canCache = false
		}
	}
	if !canCache || !s.planCache.ShouldCacheQuery(s.query) {
		return
	}

	// Cache entries replan from solutions, so every ranked candidate must
	// carry cache data. One missing means the shape is not replannable and
	// nothing is written.
	solutions := make([]*planner.QuerySolution, 0, len(decision.CandidateOrder))
	for _, idx := range decision.CandidateOrder {
		soln := s.candidates[idx].Solution
		if soln.CacheData == nil {
			return
		}
		solutions = append(solutions, soln)
	}

	if err := s.planCache.Set(s.query, solutions, decision, time.Now()); err != nil {
		log.Warningf("unable to write plan cache entry for %s: %v", s.query.Namespace, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CacheWritesTotal.Inc()
	}
}

// workAllPlans performs one round of the trial: one work step per live
// candidate. It returns false when the trial should stop.
func (s *MultiPlanStage) workAllPlans(ctx context.Context, numResults int, policy YieldPolicy) (bool, error) {
	doneWorking := false

	// The yield timer may have elapsed, or the operation been killed,
	// between calls to work.
	if err := checkYield(ctx, policy); err != nil {
		return false, err
	}

	for _, cand := range s.candidates {
		if cand.Failed {
			continue
		}
		cand.works++

		id, state, err := cand.Root.Work(ctx)
		switch state {
		case WorkAdvanced:
			cand.Results = append(cand.Results, id)
			if len(cand.Results) >= numResults {
				doneWorking = true
			}

		case WorkEOF:
			// A complete result set beats any projection from partial
			// stats; first to finish ends the trial.
			doneWorking = true

		case WorkNeedTime:
			// Nothing to do.

		case WorkNeedYield:
			if yerr := tryYield(ctx, policy); yerr != nil {
				return false, yerr
			}

		case WorkFailure:
			cand.Failed = true
			cand.failure = err
			s.failures++
			s.lastFailed = cand
			if s.failures == len(s.candidates) {
				return false, mgerrors.Wrapf(s.lastFailed.failure, "all %d candidate plans failed", len(s.candidates))
			}
		}
	}

	return !doneWorking, nil
}

// Work serves buffered trial results first, then drives the winning plan.
// A winner failure with an armed backup evicts the cached entry and
// switches to the backup.
func (s *MultiPlanStage) Work(ctx context.Context) (WorkingSetID, WorkState, error) {
	s.countWork()

	if !s.BestPlanChosen() {
		err := mgerrors.New(mgerrors.FailedPrecondition, "work called before picking a best plan")
		return InvalidWorkingSetID, WorkFailure, err
	}
	if s.IsEOF() {
		return InvalidWorkingSetID, WorkEOF, nil
	}

	best := s.candidates[s.bestPlanIdx]
	if len(best.Results) > 0 {
		id := best.Results[0]
		best.Results = best.Results[1:]
		s.countState(WorkAdvanced)
		return id, WorkAdvanced, nil
	}

	id, state, err := best.Root.Work(ctx)

	if state == WorkFailure && s.HasBackupPlan() {
		log.Warningf("best plan errored, switching to backup plan: %v", err)
		if s.planCache != nil {
			s.planCache.Remove(s.query)
		}
		s.bestPlanIdx = s.backupPlanIdx
		s.backupPlanIdx = -1
		if s.metrics != nil {
			s.metrics.BackupUsedTotal.Inc()
		}
		s.usedBackup = true
		return s.Work(ctx)
	}

	if state == WorkAdvanced && s.HasBackupPlan() {
		// The winner can produce results after all.
		log.V(2).Infof("best plan produced a result, removing backup plan")
		s.backupPlanIdx = -1
	}

	s.countState(state)
	return id, state, err
}

// IsEOF reports whether the winner is exhausted and every buffered trial
// result has been served.
func (s *MultiPlanStage) IsEOF() bool {
	if !s.BestPlanChosen() {
		return false
	}
	best := s.candidates[s.bestPlanIdx]
	return len(best.Results) == 0 && best.Root.IsEOF()
}

// Stats returns the stage's counters plus each candidate's subtree.
func (s *MultiPlanStage) Stats() *StageStats {
	stats := s.snapshot("MULTI_PLAN")
	for _, cand := range s.candidates {
		stats.Children = append(stats.Children, cand.Root.Stats())
	}
	return stats
}

// CompetitionStats returns the competition-specific counters alongside the
// stage counters.
func (s *MultiPlanStage) CompetitionStats() *MultiPlanStats {
	stats := &MultiPlanStats{
		StageStats:      *s.Stats(),
		TrialDuration:   s.trialDuration,
		TrialWorkBudget: s.trialWorkBudget,
		BestPlanIdx:     s.bestPlanIdx,
		BackupPlanIdx:   s.backupPlanIdx,
		UsedBackup:      s.usedBackup,
	}
	for _, cand := range s.candidates {
		stats.CandidateWorks = append(stats.CandidateWorks, cand.works)
	}
	return stats
}
