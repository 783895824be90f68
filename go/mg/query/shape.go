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
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ShapeKey identifies a query shape: two queries with the same namespace,
// filter structure, sort and projection share a key even when their
// constants differ. Plan cache entries are addressed by it.
type ShapeKey uint64

// Key returns the hex form of the shape key. It satisfies the cache Keyer
// interface.
func (k ShapeKey) Key() string {
	return strconv.FormatUint(uint64(k), 16)
}

func (k ShapeKey) String() string {
	return k.Key()
}

// Shape computes the shape key of the query.
func (q *Query) Shape() ShapeKey {
	d := xxhash.New()
	writeString(d, q.Namespace)
	writePredicateShape(d, q.Filter)
	writeString(d, q.Sort.String())
	if q.Proj != nil {
		writeBool(d, q.Proj.Inclusion)
		for _, f := range q.Proj.RequiredFields {
			writeString(d, f)
		}
	}
	writeBool(d, q.Skip != 0)
	writeBool(d, q.Limit != nil || q.NToReturn != nil)
	writeBool(d, q.Tailable)
	return ShapeKey(d.Sum64())
}

func writePredicateShape(d *xxhash.Digest, p *Predicate) {
	if p == nil {
		return
	}
	// The separators keep sibling shapes from colliding with nested ones.
	writeString(d, "(")
	writeString(d, strconv.Itoa(int(p.Kind)))
	writeString(d, p.Path)
	writeString(d, p.Shape)
	for _, child := range p.Children {
		writePredicateShape(d, child)
	}
	writeString(d, ")")
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

func writeBool(d *xxhash.Digest, b bool) {
	if b {
		_, _ = d.Write([]byte{1})
		return
	}
	_, _ = d.Write([]byte{0})
}
