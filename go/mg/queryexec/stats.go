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

import "time"

// StageStats is a snapshot of one stage's runtime counters, forming a tree
// that mirrors the plan.
type StageStats struct {
	// Name identifies the stage type, e.g. "MULTI_PLAN".
	Name string

	Works     uint64
	Advanced  uint64
	NeedTime  uint64
	NeedYield uint64

	Children []*StageStats
}

// CommonStats is the embeddable counter block stages update as they work.
type CommonStats struct {
	works     uint64
	advanced  uint64
	needTime  uint64
	needYield uint64
}

func (c *CommonStats) countWork() { c.works++ }

func (c *CommonStats) countState(state WorkState) {
	switch state {
	case WorkAdvanced:
		c.advanced++
	case WorkNeedTime:
		c.needTime++
	case WorkNeedYield:
		c.needYield++
	}
}

func (c *CommonStats) snapshot(name string) *StageStats {
	return &StageStats{
		Name:      name,
		Works:     c.works,
		Advanced:  c.advanced,
		NeedTime:  c.needTime,
		NeedYield: c.needYield,
	}
}

// MultiPlanStats extends the common counters with competition facts.
type MultiPlanStats struct {
	StageStats

	// TrialDuration is the wall time of the trial period.
	TrialDuration time.Duration

	// TrialWorkBudget is the work-step budget the trial ran under.
	TrialWorkBudget int

	// CandidateWorks[i] is the number of work steps candidate i consumed
	// during the trial.
	CandidateWorks []uint64

	// BestPlanIdx is the winner's original candidate index, -1 before the
	// trial.
	BestPlanIdx int

	// BackupPlanIdx is the backup's original candidate index, -1 if none.
	BackupPlanIdx int

	// UsedBackup is set once a winner failure switched execution to the
	// backup plan.
	UsedBackup bool
}
