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

// Projection is the parsed form of a projection specification, reduced to
// the properties access-path selection cares about.
type Projection struct {
	// RequiredFields are the field paths the projection names: the fields
	// it needs to read for an inclusion, the fields it drops for an
	// exclusion.
	RequiredFields []string

	// Inclusion is true for pure inclusion projections.
	Inclusion bool

	// WantIndexKey is set for returnKey-style projections that output the
	// index key instead of the document.
	WantIndexKey bool

	// WantSortKey is set when the projection needs sort key metadata.
	WantSortKey bool

	// HasDottedPath is set when any projected path has a dotted component.
	HasDottedPath bool

	// RequiresDocument is set when the projection can only be computed from
	// the full document, regardless of index coverage.
	RequiresDocument bool
}

// KeepsField reports whether the projected output still contains the given
// field.
func (p *Projection) KeepsField(field string) bool {
	listed := false
	for _, f := range p.RequiredFields {
		if f == field {
			listed = true
			break
		}
	}
	if p.Inclusion {
		return listed
	}
	return !listed
}

// IsSimple reports whether the projection qualifies for the fast-path
// implementations: a non-dotted pure inclusion or exclusion that needs
// neither index key nor sort key metadata and not the whole document.
func (p *Projection) IsSimple() bool {
	return !p.WantIndexKey && !p.WantSortKey && !p.HasDottedPath && !p.RequiresDocument
}
