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

package keyval

import "strings"

// PatternField is one field of a key or sort pattern. Dir is +1 for
// ascending and -1 for descending. A zero Dir marks a special index
// component (geo, text); such fields never occur in sort patterns.
type PatternField struct {
	Field string
	Dir   int
}

// Ordinal reports whether the field is a plain ascending or descending
// component.
func (f PatternField) Ordinal() bool {
	return f.Dir == 1 || f.Dir == -1
}

// Pattern is an ordered list of fields. It represents both compound index
// key patterns and requested sort orders.
type Pattern []PatternField

// Asc is shorthand for an ascending pattern field.
func Asc(field string) PatternField {
	return PatternField{Field: field, Dir: 1}
}

// Desc is shorthand for a descending pattern field.
func Desc(field string) PatternField {
	return PatternField{Field: field, Dir: -1}
}

// IsEmpty reports whether the pattern has no fields.
func (p Pattern) IsEmpty() bool {
	return len(p) == 0
}

// Equal reports whether p and other have the same fields in the same order
// with the same directions.
func (p Pattern) Equal(other Pattern) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether p is a (possibly complete) prefix of other.
func (p Pattern) IsPrefixOf(other Pattern) bool {
	if len(p) > len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Reversed returns the pattern with every direction flipped. Special
// components are left untouched.
func (p Pattern) Reversed() Pattern {
	out := make(Pattern, len(p))
	for i, f := range p {
		out[i] = PatternField{Field: f.Field, Dir: -f.Dir}
	}
	return out
}

// HasField reports whether the pattern mentions the given field.
func (p Pattern) HasField(field string) bool {
	for _, f := range p {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (p Pattern) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Field)
		sb.WriteString(": ")
		switch f.Dir {
		case 1:
			sb.WriteString("1")
		case -1:
			sb.WriteString("-1")
		default:
			sb.WriteString("special")
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
