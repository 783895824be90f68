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

	"github.com/mangrovedb/mangrove/go/mg/keyval"
)

// QueuedDataStage replays a scripted sequence of work outcomes. It stands
// in for a real scan in tests and demos where the interesting behavior is
// in the stages above it.
type QueuedDataStage struct {
	CommonStats

	ws    *WorkingSet
	queue []queuedResult
}

type queuedResult struct {
	state WorkState
	id    WorkingSetID
	err   error
}

func NewQueuedDataStage(ws *WorkingSet) *QueuedDataStage {
	return &QueuedDataStage{ws: ws}
}

// PushState queues a data-less outcome such as WorkNeedTime.
func (s *QueuedDataStage) PushState(state WorkState) {
	s.queue = append(s.queue, queuedResult{state: state, id: InvalidWorkingSetID})
}

// PushDoc queues a WorkAdvanced outcome carrying the given document.
func (s *QueuedDataStage) PushDoc(doc keyval.Document) {
	id := s.ws.Allocate()
	s.ws.Get(id).Doc = doc
	s.queue = append(s.queue, queuedResult{state: WorkAdvanced, id: id})
}

// PushError queues a WorkFailure outcome carrying the given error.
func (s *QueuedDataStage) PushError(err error) {
	id := s.ws.AllocateStatus(err)
	s.queue = append(s.queue, queuedResult{state: WorkFailure, id: id, err: err})
}

func (s *QueuedDataStage) Work(ctx context.Context) (WorkingSetID, WorkState, error) {
	s.countWork()
	if len(s.queue) == 0 {
		return InvalidWorkingSetID, WorkEOF, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.countState(next.state)
	return next.id, next.state, next.err
}

func (s *QueuedDataStage) IsEOF() bool { return len(s.queue) == 0 }

func (s *QueuedDataStage) Stats() *StageStats {
	return s.snapshot("QUEUED_DATA")
}
