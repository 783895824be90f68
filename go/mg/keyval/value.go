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

// Package keyval provides the value and pattern types used by the query
// planner: index key values with the canonical cross-type ordering, and
// ordered field patterns for index keys and sort specifications.
package keyval

import (
	"fmt"
	"strconv"
)

// Kind is the type tag of a Value. The declaration order of the kinds is
// their canonical sort order: values of a lower kind always sort before
// values of a higher kind, regardless of their payload.
type Kind int8

const (
	// KindMinKey sorts before every other value.
	KindMinKey Kind = iota
	// KindNull is the null value.
	KindNull
	// KindNumber is a numeric value.
	KindNumber
	// KindString is a string value.
	KindString
	// KindBool is a boolean value, false before true.
	KindBool
	// KindMaxKey sorts after every other value.
	KindMaxKey
)

// Value is a single index key value. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

var (
	// MinKey is the smallest possible value.
	MinKey = Value{kind: KindMinKey}
	// MaxKey is the largest possible value.
	MaxKey = Value{kind: KindMaxKey}
	// Null is the null value.
	Null = Value{kind: KindNull}
)

// NewNumber builds a numeric Value.
func NewNumber(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// NewString builds a string Value.
func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewBool builds a boolean Value.
func NewBool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the type tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Number returns the numeric payload. It is only meaningful for KindNumber.
func (v Value) Number() float64 {
	return v.num
}

// Compare returns -1, 0 or 1 depending on whether v sorts before, equal to
// or after other in the canonical ordering.
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNumber:
		switch {
		case v.num < other.num:
			return -1
		case v.num > other.num:
			return 1
		}
	case KindString:
		switch {
		case v.str < other.str:
			return -1
		case v.str > other.str:
			return 1
		}
	case KindBool:
		switch {
		case !v.b && other.b:
			return -1
		case v.b && !other.b:
			return 1
		}
	}
	return 0
}

// Equal reports whether v and other are the same value.
func (v Value) Equal(other Value) bool {
	return v.Compare(other) == 0
}

func (v Value) String() string {
	switch v.kind {
	case KindMinKey:
		return "MinKey"
	case KindMaxKey:
		return "MaxKey"
	case KindNull:
		return "null"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return fmt.Sprintf("unknown(%d)", v.kind)
}
