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

import (
	"sort"
	"strings"
)

// Document is a flat field-to-value mapping, the executor's view of a
// stored document.
type Document map[string]Value

// Get returns the value of a field and whether it is present.
func (d Document) Get(field string) (Value, bool) {
	v, ok := d[field]
	return v, ok
}

// Project returns a copy of the document reduced to the given fields.
// Missing fields are simply absent from the result.
func (d Document) Project(fields []string) Document {
	out := make(Document, len(fields))
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (d Document) String() string {
	fields := make([]string, 0, len(d))
	for f := range d {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(d[f].String())
	}
	b.WriteByte('}')
	return b.String()
}
