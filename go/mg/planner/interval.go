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

package planner

import (
	"fmt"
	"strings"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
)

// Interval is a range of index key values over one field, or a single
// point. Start always holds the value that comes first in scan order, so a
// reversed scan stores its intervals with Start and End swapped.
type Interval struct {
	Start          keyval.Value
	End            keyval.Value
	StartInclusive bool
	EndInclusive   bool
}

// PointInterval returns the interval holding exactly one value.
func PointInterval(v keyval.Value) Interval {
	return Interval{Start: v, End: v, StartInclusive: true, EndInclusive: true}
}

// FullInterval returns the interval covering every value.
func FullInterval() Interval {
	return Interval{Start: keyval.MinKey, End: keyval.MaxKey, StartInclusive: true, EndInclusive: true}
}

// IsPoint reports whether the interval holds exactly one value.
func (i Interval) IsPoint() bool {
	return i.StartInclusive && i.EndInclusive && i.Start.Equal(i.End)
}

// Reversed returns the interval with its endpoints swapped, as stored by a
// scan running in the opposite direction.
func (i Interval) Reversed() Interval {
	return Interval{
		Start:          i.End,
		End:            i.Start,
		StartInclusive: i.EndInclusive,
		EndInclusive:   i.StartInclusive,
	}
}

// Equal reports whether two intervals have identical endpoints and
// inclusiveness.
func (i Interval) Equal(other Interval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End) &&
		i.StartInclusive == other.StartInclusive && i.EndInclusive == other.EndInclusive
}

func (i Interval) String() string {
	open, close := "(", ")"
	if i.StartInclusive {
		open = "["
	}
	if i.EndInclusive {
		close = "]"
	}
	return fmt.Sprintf("%s%v, %v%s", open, i.Start, i.End, close)
}

// OrderedIntervalList is the ordered sequence of disjoint intervals of one
// indexed field. The intervals are ordered consistent with the scan
// direction of the owning scan node.
type OrderedIntervalList struct {
	Field     string
	Intervals []Interval
}

// IsUnionOfPoints reports whether every interval in the list is a point.
// An empty list is not a union of points.
func (oil OrderedIntervalList) IsUnionOfPoints() bool {
	if len(oil.Intervals) == 0 {
		return false
	}
	for _, ival := range oil.Intervals {
		if !ival.IsPoint() {
			return false
		}
	}
	return true
}

// Reversed returns the list as stored by a scan running in the opposite
// direction: interval order reversed and each interval's endpoints swapped.
func (oil OrderedIntervalList) Reversed() OrderedIntervalList {
	out := OrderedIntervalList{Field: oil.Field, Intervals: make([]Interval, len(oil.Intervals))}
	for i, ival := range oil.Intervals {
		out.Intervals[len(oil.Intervals)-1-i] = ival.Reversed()
	}
	return out
}

func (oil OrderedIntervalList) String() string {
	parts := make([]string, len(oil.Intervals))
	for i, ival := range oil.Intervals {
		parts[i] = ival.String()
	}
	return fmt.Sprintf("%s: %s", oil.Field, strings.Join(parts, ", "))
}

// IndexBounds are the bounds of one index scan: one OrderedIntervalList per
// field of the key pattern, in key pattern order. Bounds flagged SimpleRange
// cannot be decomposed per field; they carry only global start and end keys.
type IndexBounds struct {
	Fields []OrderedIntervalList

	// SimpleRange marks bounds expressed as a single [Start, End) range over
	// raw index keys rather than per-field interval lists.
	SimpleRange  bool
	Start        keyval.Value
	End          keyval.Value
	EndInclusive bool
}

// Reverse flips the bounds in place to match a reversed scan direction.
func (b *IndexBounds) Reverse() {
	if b.SimpleRange {
		b.Start, b.End = b.End, b.Start
		return
	}
	for i := range b.Fields {
		b.Fields[i] = b.Fields[i].Reversed()
	}
}

// Clone returns a deep copy of the bounds.
func (b IndexBounds) Clone() IndexBounds {
	out := b
	out.Fields = make([]OrderedIntervalList, len(b.Fields))
	for i, oil := range b.Fields {
		out.Fields[i] = OrderedIntervalList{Field: oil.Field, Intervals: append([]Interval(nil), oil.Intervals...)}
	}
	return out
}

func (b IndexBounds) String() string {
	if b.SimpleRange {
		return fmt.Sprintf("[%v, %v), simple range", b.Start, b.End)
	}
	parts := make([]string, len(b.Fields))
	for i, oil := range b.Fields {
		parts[i] = oil.String()
	}
	return strings.Join(parts, " / ")
}
