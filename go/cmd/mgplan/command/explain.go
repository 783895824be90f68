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

package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

// Explain returns the subcommand that runs access-path analysis over a
// synthetic index scan and prints the resulting plan tree.
func Explain() *cobra.Command {
	var (
		indexArg  string
		pointsArg []string
		sortArg   string
		project   string
		skip      int64
		limit     int64
		noBlock   bool
		count     bool
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain access-path analysis of a query over one index.",
		Long: "Builds an index scan over a synthetic index and runs access-path analysis\n" +
			"for the given sort, skip, limit and projection. Point bounds given with\n" +
			"--points participate in the sort-by-explosion rewrite.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pattern, err := parsePattern(indexArg)
			if err != nil {
				return err
			}
			sort, err := parsePattern(sortArg)
			if err != nil {
				return err
			}
			points, err := parsePoints(pointsArg)
			if err != nil {
				return err
			}

			idx := planner.IndexEntry{Name: patternName(pattern), KeyPattern: pattern}
			isn := planner.NewIndexScanNode(idx)
			for _, f := range pattern {
				oil := planner.OrderedIntervalList{Field: f.Field}
				if vals, ok := points[f.Field]; ok {
					for _, v := range vals {
						oil.Intervals = append(oil.Intervals, planner.PointInterval(keyval.NewNumber(v)))
					}
				} else {
					oil.Intervals = []planner.Interval{planner.FullInterval()}
				}
				isn.Bounds.Fields = append(isn.Bounds.Fields, oil)
			}

			q := &query.Query{Namespace: "explain.synthetic", Sort: sort}
			if skip > 0 {
				q.Skip = skip
			}
			if limit > 0 {
				q.Limit = &limit
			}
			if project != "" {
				q.Proj = &query.Projection{
					RequiredFields: strings.Split(project, ","),
					Inclusion:      true,
				}
			}

			opts := planner.OptionsFromKnobs(knobs)
			if noBlock {
				opts |= planner.NoBlockingSort
			}
			if count {
				opts |= planner.IsCount
			}
			params := &planner.Params{
				Options: opts,
				Indices: []planner.IndexEntry{idx},
				Knobs:   knobs,
			}

			soln := planner.AnalyzeDataAccess(q, params, isn)
			if soln == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no solution: the query needs a disallowed stage")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), planner.TreeString(soln.Root))
			if soln.HasBlockingStage {
				fmt.Fprintln(cmd.OutOrStdout(), "\nplan has a blocking stage")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexArg, "index", "a:1", "index key pattern, e.g. a:1,b:-1")
	cmd.Flags().StringArrayVar(&pointsArg, "points", nil, "point bounds for a field, e.g. a=1,2 (repeatable)")
	cmd.Flags().StringVar(&sortArg, "sort", "", "requested sort pattern, e.g. b:1")
	cmd.Flags().StringVar(&project, "project", "", "inclusion projection fields, comma separated")
	cmd.Flags().Int64Var(&skip, "skip", 0, "number of leading results to discard")
	cmd.Flags().Int64Var(&limit, "limit", 0, "hard result limit, 0 for none")
	cmd.Flags().BoolVar(&noBlock, "no-blocking-sort", false, "reject plans that need a blocking sort")
	cmd.Flags().BoolVar(&count, "count", false, "treat the query as a count, skipping the final fetch")

	return cmd
}

// parsePattern parses "a:1,b:-1" into a key pattern. Empty input is an
// empty pattern.
func parsePattern(s string) (keyval.Pattern, error) {
	if s == "" {
		return nil, nil
	}
	var out keyval.Pattern
	for _, part := range strings.Split(s, ",") {
		field, dir, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad pattern field %q, want name:direction", part)
		}
		d, err := strconv.Atoi(dir)
		if err != nil || (d != 1 && d != -1) {
			return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad direction %q for field %q", dir, field)
		}
		out = append(out, keyval.PatternField{Field: field, Dir: d})
	}
	return out, nil
}

// parsePoints parses repeated "field=v1,v2" specs.
func parsePoints(specs []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(specs))
	for _, spec := range specs {
		field, vals, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad points spec %q, want field=v1,v2", spec)
		}
		for _, raw := range strings.Split(vals, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad point value %q: %v", raw, err)
			}
			out[field] = append(out[field], v)
		}
	}
	return out, nil
}

func patternName(p keyval.Pattern) string {
	parts := make([]string, len(p))
	for i, f := range p {
		parts[i] = fmt.Sprintf("%s_%d", f.Field, f.Dir)
	}
	return strings.Join(parts, "_")
}
