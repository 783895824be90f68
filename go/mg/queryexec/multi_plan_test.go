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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// resultCountRanker ranks by buffered trial results, submission order
// breaking ties. It stands in for the production ranker so these tests
// exercise only the competition mechanics.
type resultCountRanker struct{}

func (resultCountRanker) PickBest(candidates []*CandidatePlan) (*Decision, error) {
	d := &Decision{}
	for i, cand := range candidates {
		if cand.Failed {
			continue
		}
		d.CandidateOrder = append(d.CandidateOrder, i)
		d.Scores = append(d.Scores, float64(len(cand.Results)))
	}
	for pass := 0; pass < len(d.CandidateOrder); pass++ {
		for i := 1; i < len(d.CandidateOrder); i++ {
			if d.Scores[i] > d.Scores[i-1] {
				d.Scores[i], d.Scores[i-1] = d.Scores[i-1], d.Scores[i]
				d.CandidateOrder[i], d.CandidateOrder[i-1] = d.CandidateOrder[i-1], d.CandidateOrder[i]
			}
		}
	}
	return d, nil
}

// fixedDecisionRanker returns a canned decision.
type fixedDecisionRanker struct{ decision *Decision }

func (r fixedDecisionRanker) PickBest([]*CandidatePlan) (*Decision, error) {
	return r.decision, nil
}

// recordingCache records plan cache traffic.
type recordingCache struct {
	sets    int
	removes int

	lastSolutions []*planner.QuerySolution
	lastDecision  *Decision
}

func (c *recordingCache) ShouldCacheQuery(*query.Query) bool { return true }

func (c *recordingCache) Set(_ *query.Query, solutions []*planner.QuerySolution, decision *Decision, _ time.Time) error {
	c.sets++
	c.lastSolutions = solutions
	c.lastDecision = decision
	return nil
}

func (c *recordingCache) Remove(*query.Query) { c.removes++ }

type fixedSizeColl int64

func (c fixedSizeColl) NumRecords() int64 { return int64(c) }

func testSolution(blocking bool) *planner.QuerySolution {
	return &planner.QuerySolution{
		HasBlockingStage: blocking,
		CacheData:        &planner.SolutionCacheData{IndexName: "a_1"},
	}
}

func docStage(ws *WorkingSet, n int) *QueuedDataStage {
	s := NewQueuedDataStage(ws)
	for i := 0; i < n; i++ {
		s.PushDoc(keyval.Document{"a": keyval.NewNumber(float64(i))})
	}
	return s
}

func TestPickBestPlanMostProductiveWins(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})

	// The fast plan produces five results and finishes; the slow one only
	// churns.
	fast := docStage(ws, 5)
	slow := NewQueuedDataStage(ws)
	for i := 0; i < 100; i++ {
		slow.PushState(WorkNeedTime)
	}
	mp.AddPlan(testSolution(false), fast)
	mp.AddPlan(testSolution(false), slow)

	require.False(t, mp.BestPlanChosen())
	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))

	require.True(t, mp.BestPlanChosen())
	idx, ok := mp.BestPlanIdx()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.NotNil(t, mp.BestSolution())

	// The trial's buffered results stream out first, then EOF.
	var got int
	for !mp.IsEOF() {
		id, state, err := mp.Work(context.Background())
		require.NoError(t, err)
		if state == WorkAdvanced {
			got++
			ws.Free(id)
		}
	}
	assert.Equal(t, 5, got)
}

func TestTrialStopsAtQueryLimit(t *testing.T) {
	ws := NewWorkingSet()
	limit := int64(2)
	q := &query.Query{Namespace: "test.c", Limit: &limit}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	plenty := docStage(ws, 50)
	mp.AddPlan(testSolution(false), plenty)

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))

	// The candidate stopped as soon as its buffer reached the limit.
	stats := mp.CompetitionStats()
	require.Len(t, stats.CandidateWorks, 1)
	assert.EqualValues(t, 2, stats.CandidateWorks[0])
}

func TestTrialFirstEOFWins(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	short := docStage(ws, 1) // 1 doc, then EOF on the second work
	long := docStage(ws, 50)
	mp.AddPlan(testSolution(false), short)
	mp.AddPlan(testSolution(false), long)

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))

	// Both candidates got exactly two rounds: doc, then short's EOF ended
	// the trial.
	stats := mp.CompetitionStats()
	assert.EqualValues(t, 2, stats.CandidateWorks[0])
	assert.EqualValues(t, 2, stats.CandidateWorks[1])
}

func TestAllPlansFailedFailsCompetition(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	for i := 0; i < 2; i++ {
		s := NewQueuedDataStage(ws)
		s.PushError(assert.AnError)
		mp.AddPlan(testSolution(false), s)
	}

	err := mp.PickBestPlan(context.Background(), NoopYieldPolicy{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "all 2 candidate plans failed")
	assert.False(t, mp.BestPlanChosen())
}

// countingYieldPolicy records yield traffic.
type countingYieldPolicy struct {
	auto   bool
	checks int
	yields int
}

func (p *countingYieldPolicy) CanAutoYield() bool { return p.auto }

func (p *countingYieldPolicy) ShouldYieldOrInterrupt(ctx context.Context) bool {
	p.checks++
	return ctx.Err() != nil
}

func (p *countingYieldPolicy) YieldOrInterrupt(ctx context.Context) error {
	p.yields++
	return ctx.Err()
}

func TestTrialObservesInterruption(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	churn := NewQueuedDataStage(ws)
	for i := 0; i < 100; i++ {
		churn.PushState(WorkNeedTime)
	}
	mp.AddPlan(testSolution(false), churn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A killed operation is noticed between work units even though no
	// stage ever asks to yield.
	err := mp.PickBestPlan(ctx, NoopYieldPolicy{})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, mp.BestPlanChosen())
}

func TestTrialServicesStageYields(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	s := NewQueuedDataStage(ws)
	s.PushState(WorkNeedYield)
	s.PushState(WorkNeedYield)
	s.PushDoc(keyval.Document{"a": keyval.NewNumber(1)})
	mp.AddPlan(testSolution(false), s)

	policy := &countingYieldPolicy{auto: true}
	require.NoError(t, mp.PickBestPlan(context.Background(), policy))
	assert.Equal(t, 2, policy.yields)
	// The policy is also consulted between work units.
	assert.NotZero(t, policy.checks)
}

func TestYieldWithoutAutoYieldAbortsCompetition(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	s := NewQueuedDataStage(ws)
	s.PushState(WorkNeedYield)
	mp.AddPlan(testSolution(false), s)

	err := mp.PickBestPlan(context.Background(), &countingYieldPolicy{auto: false})
	require.Error(t, err)
	assert.Equal(t, mgerrors.Aborted, mgerrors.CodeOf(err))
	assert.False(t, mp.BestPlanChosen())
}

func TestFailedCandidateDoesNotWin(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})

	failing := NewQueuedDataStage(ws)
	failing.PushError(assert.AnError)
	mp.AddPlan(testSolution(false), failing)
	mp.AddPlan(testSolution(false), docStage(ws, 3))

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
	idx, _ := mp.BestPlanIdx()
	assert.Equal(t, 1, idx)
}

func TestBackupPlanSwitchOnFailure(t *testing.T) {
	ws := NewWorkingSet()
	limit := int64(1)
	q := &query.Query{Namespace: "test.c", Limit: &limit}
	pc := &recordingCache{}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), fixedDecisionRanker{&Decision{
		CandidateOrder: []int{0, 1},
		Scores:         []float64{2, 1},
	}}, WithPlanCache(pc, CacheNever))

	// The blocking winner buffers nothing during the trial and fails
	// afterwards; the non-blocking runner-up buffered one result.
	blocking := NewQueuedDataStage(ws)
	blocking.PushState(WorkNeedTime)
	blocking.PushError(assert.AnError)
	mp.AddPlan(testSolution(true), blocking)
	mp.AddPlan(testSolution(false), docStage(ws, 3))

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
	require.True(t, mp.HasBackupPlan())

	id, state, err := mp.Work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WorkAdvanced, state)
	assert.NotEqual(t, InvalidWorkingSetID, id)

	// The failure evicted the cached shape and consumed the backup.
	assert.Equal(t, 1, pc.removes)
	assert.False(t, mp.HasBackupPlan())
	idx, _ := mp.BestPlanIdx()
	assert.Equal(t, 1, idx)
	assert.True(t, mp.CompetitionStats().UsedBackup)
}

func TestBackupPlanClearedOnAdvance(t *testing.T) {
	ws := NewWorkingSet()
	limit := int64(1)
	q := &query.Query{Namespace: "test.c", Limit: &limit}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), fixedDecisionRanker{&Decision{
		CandidateOrder: []int{0, 1},
		Scores:         []float64{2, 1},
	}})

	// The blocking winner buffers nothing during the trial but delivers
	// later.
	blocking := NewQueuedDataStage(ws)
	blocking.PushState(WorkNeedTime)
	blocking.PushDoc(keyval.Document{"a": keyval.NewNumber(1)})
	mp.AddPlan(testSolution(true), blocking)
	mp.AddPlan(testSolution(false), docStage(ws, 3))

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
	require.True(t, mp.HasBackupPlan())

	_, state, err := mp.Work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WorkAdvanced, state)

	// The winner proved itself; the backup is gone and the winner stays.
	assert.False(t, mp.HasBackupPlan())
	idx, _ := mp.BestPlanIdx()
	assert.Equal(t, 0, idx)
}

func TestNoBackupWhenWinnerNotBlocking(t *testing.T) {
	ws := NewWorkingSet()
	q := &query.Query{Namespace: "test.c"}

	mp := NewMultiPlanStage(q, fixedSizeColl(100), resultCountRanker{})
	mp.AddPlan(testSolution(false), docStage(ws, 2))
	mp.AddPlan(testSolution(false), docStage(ws, 1))

	require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
	assert.False(t, mp.HasBackupPlan())
}

func TestCacheWritePolicy(t *testing.T) {
	newCompetition := func(pc PlanCache, mode CachingMode, decision *Decision, winnerDocs int) *MultiPlanStage {
		ws := NewWorkingSet()
		q := &query.Query{Namespace: "test.c"}
		mp := NewMultiPlanStage(q, fixedSizeColl(100), fixedDecisionRanker{decision},
			WithPlanCache(pc, mode))
		mp.AddPlan(testSolution(false), docStage(ws, winnerDocs))
		mp.AddPlan(testSolution(false), NewQueuedDataStage(ws))
		return mp
	}
	plainDecision := func() *Decision {
		return &Decision{CandidateOrder: []int{0, 1}, Scores: []float64{2, 1}}
	}
	tiedDecision := func() *Decision {
		return &Decision{CandidateOrder: []int{0, 1}, Scores: []float64{1, 1}, TieForBest: true}
	}

	t.Run("sometimes writes a clear win", func(t *testing.T) {
		pc := &recordingCache{}
		mp := newCompetition(pc, CacheSometimes, plainDecision(), 3)
		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		require.Equal(t, 1, pc.sets)

		// Winner first, full ranked order.
		assert.Len(t, pc.lastSolutions, 2)
		assert.Equal(t, 0, pc.lastDecision.Winner())
	})

	t.Run("sometimes suppressed on tie", func(t *testing.T) {
		pc := &recordingCache{}
		mp := newCompetition(pc, CacheSometimes, tiedDecision(), 3)
		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		assert.Zero(t, pc.sets)
	})

	t.Run("sometimes suppressed on zero results", func(t *testing.T) {
		pc := &recordingCache{}
		mp := newCompetition(pc, CacheSometimes, plainDecision(), 0)
		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		assert.Zero(t, pc.sets)
	})

	t.Run("always writes even on tie", func(t *testing.T) {
		pc := &recordingCache{}
		mp := newCompetition(pc, CacheAlways, tiedDecision(), 0)
		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		assert.Equal(t, 1, pc.sets)
	})

	t.Run("never writes nothing", func(t *testing.T) {
		pc := &recordingCache{}
		mp := newCompetition(pc, CacheNever, plainDecision(), 3)
		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		assert.Zero(t, pc.sets)
	})

	t.Run("missing cache data suppresses the whole write", func(t *testing.T) {
		ws := NewWorkingSet()
		q := &query.Query{Namespace: "test.c"}
		pc := &recordingCache{}
		mp := NewMultiPlanStage(q, fixedSizeColl(100), fixedDecisionRanker{plainDecision()},
			WithPlanCache(pc, CacheAlways))

		mp.AddPlan(testSolution(false), docStage(ws, 3))
		runnerUp := testSolution(false)
		runnerUp.CacheData = nil
		mp.AddPlan(runnerUp, NewQueuedDataStage(ws))

		require.NoError(t, mp.PickBestPlan(context.Background(), NoopYieldPolicy{}))
		assert.Zero(t, pc.sets)
	})
}

func TestWorkBeforePickFails(t *testing.T) {
	ws := NewWorkingSet()
	mp := NewMultiPlanStage(&query.Query{Namespace: "test.c"}, nil, resultCountRanker{})
	mp.AddPlan(testSolution(false), docStage(ws, 1))

	_, state, err := mp.Work(context.Background())
	assert.Equal(t, WorkFailure, state)
	assert.Error(t, err)
}

func TestTrialWorkBudget(t *testing.T) {
	knobs := query.DefaultKnobs()

	// Small collections get the flat floor.
	assert.Equal(t, knobs.TrialWorks, TrialWorkBudget(knobs, fixedSizeColl(100)))
	assert.Equal(t, knobs.TrialWorks, TrialWorkBudget(knobs, nil))

	// Large collections scale with the fraction knob.
	assert.Equal(t, 300000, TrialWorkBudget(knobs, fixedSizeColl(1000000)))
}

func TestTrialNumResults(t *testing.T) {
	knobs := query.DefaultKnobs()
	lim := func(v int64) *int64 { return &v }

	assert.Equal(t, knobs.TrialMaxResults,
		TrialNumResults(knobs, &query.Query{}))
	assert.Equal(t, 7,
		TrialNumResults(knobs, &query.Query{Limit: lim(7)}))
	assert.Equal(t, knobs.TrialMaxResults,
		TrialNumResults(knobs, &query.Query{Limit: lim(500)}))

	// A negative-wire numToReturn is a hard limit.
	assert.Equal(t, 9,
		TrialNumResults(knobs, &query.Query{NToReturn: lim(9), WantMore: false}))
	// An ambiguous numToReturn still caps the trial.
	assert.Equal(t, 9,
		TrialNumResults(knobs, &query.Query{NToReturn: lim(9), WantMore: true}))
}
