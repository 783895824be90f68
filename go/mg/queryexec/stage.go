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

// Package queryexec runs query plans one work step at a time. Its
// centerpiece is the multi-plan stage, which races candidate plans for a
// trial period, picks a winner, and feeds the plan cache.
package queryexec

import "context"

// WorkState is the outcome of a single work step of a stage.
type WorkState int

const (
	// WorkAdvanced means a result is ready; the returned working set ID
	// refers to it.
	WorkAdvanced WorkState = iota

	// WorkNeedTime means progress was made but no result is ready yet.
	WorkNeedTime

	// WorkNeedYield means the stage wants locks released before it can
	// continue.
	WorkNeedYield

	// WorkEOF means the stage is exhausted.
	WorkEOF

	// WorkFailure means the stage hit an unrecoverable error. The error
	// return carries it; the returned ID refers to a status member when
	// one was allocated.
	WorkFailure
)

func (s WorkState) String() string {
	switch s {
	case WorkAdvanced:
		return "ADVANCED"
	case WorkNeedTime:
		return "NEED_TIME"
	case WorkNeedYield:
		return "NEED_YIELD"
	case WorkEOF:
		return "EOF"
	case WorkFailure:
		return "FAILURE"
	}
	return "UNKNOWN"
}

// Stage is one node of an executable plan. Work performs one unit of work;
// a caller drives the plan by calling Work until EOF. Stages are not safe
// for concurrent use.
type Stage interface {
	// Work performs one step. The returned ID is meaningful only for
	// WorkAdvanced (a result) and WorkFailure (an optional status member).
	// The error is non-nil exactly when the state is WorkFailure.
	Work(ctx context.Context) (WorkingSetID, WorkState, error)

	// IsEOF reports whether the stage has nothing more to produce.
	IsEOF() bool

	// Stats returns a snapshot of the stage's runtime counters, including
	// those of its children.
	Stats() *StageStats
}
