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

import "github.com/mangrovedb/mangrove/go/mg/keyval"

// WorkingSetID identifies a member of a WorkingSet. IDs are only valid
// against the set that allocated them.
type WorkingSetID uint32

// InvalidWorkingSetID is never allocated.
const InvalidWorkingSetID WorkingSetID = ^WorkingSetID(0)

// WorkingSetMember is one in-flight result passed between stages by ID.
type WorkingSetMember struct {
	// RecordID locates the stored document, zero if unknown.
	RecordID int64

	// Doc is the (possibly partial) document.
	Doc keyval.Document

	// Key is the index key the member was produced from, nil if none.
	Key keyval.Document

	status error
}

// StatusErr returns the error of a status member, nil for ordinary
// members.
func (m *WorkingSetMember) StatusErr() error { return m.status }

// WorkingSet is an arena of members stages hand each other by ID. Freed
// slots are recycled.
type WorkingSet struct {
	members []WorkingSetMember
	free    []WorkingSetID
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{}
}

// Allocate returns the ID of a zeroed member.
func (ws *WorkingSet) Allocate() WorkingSetID {
	if n := len(ws.free); n > 0 {
		id := ws.free[n-1]
		ws.free = ws.free[:n-1]
		ws.members[id] = WorkingSetMember{}
		return id
	}
	ws.members = append(ws.members, WorkingSetMember{})
	return WorkingSetID(len(ws.members) - 1)
}

// AllocateStatus returns the ID of a member that carries an error instead
// of data.
func (ws *WorkingSet) AllocateStatus(err error) WorkingSetID {
	id := ws.Allocate()
	ws.members[id].status = err
	return id
}

// Get returns the member for an ID. The pointer is invalidated by the next
// Allocate.
func (ws *WorkingSet) Get(id WorkingSetID) *WorkingSetMember {
	return &ws.members[id]
}

// Free returns a member's slot to the arena.
func (ws *WorkingSet) Free(id WorkingSetID) {
	ws.members[id] = WorkingSetMember{}
	ws.free = append(ws.free, id)
}
