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

// PredicateKind classifies a node of the filter tree. The planner never
// evaluates predicates; it only inspects their structure.
type PredicateKind int

const (
	// PredicateComparison is any plain comparison or range predicate.
	PredicateComparison PredicateKind = iota
	// PredicateGeo is a geo-within or geo-intersects predicate.
	PredicateGeo
	// PredicateGeoNear is a geo-near predicate.
	PredicateGeoNear
	// PredicateText is a text-search predicate.
	PredicateText
	// PredicateAnd is a conjunction of child predicates.
	PredicateAnd
	// PredicateOr is a disjunction of child predicates.
	PredicateOr
)

// Predicate is the planner's view of a match expression: an opaque tree
// that exposes only what access-path selection needs. Evaluation belongs to
// the match engine, which holds the real expression behind Expr.
type Predicate struct {
	Kind PredicateKind
	// Path is the field the predicate applies to, if any.
	Path string
	// Shape is the normalized textual form of the predicate with constants
	// stripped. It feeds the query shape key.
	Shape string
	// SkipValidation is set by the planner on geo predicates whose field is
	// covered by a sufficiently new geo index; the match engine then skips
	// re-validating geometry that was validated on insert.
	SkipValidation bool
	// Expr is the opaque handle of the real match expression.
	Expr any

	Children []*Predicate
}

// HasKind reports whether the predicate tree contains a node of the given
// kind.
func (p *Predicate) HasKind(kind PredicateKind) bool {
	if p == nil {
		return false
	}
	if p.Kind == kind {
		return true
	}
	for _, child := range p.Children {
		if child.HasKind(kind) {
			return true
		}
	}
	return false
}

// Clone returns a copy of the predicate tree. The opaque Expr handle is
// shared, matching the shallow-clone semantics of the match engine.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return nil
	}
	out := &Predicate{
		Kind:           p.Kind,
		Path:           p.Path,
		Shape:          p.Shape,
		SkipValidation: p.SkipValidation,
		Expr:           p.Expr,
	}
	if len(p.Children) > 0 {
		out.Children = make([]*Predicate, len(p.Children))
		for i, child := range p.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}
