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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mangrovedb/mangrove/go/mg/keyval"
	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
	"github.com/mangrovedb/mangrove/go/mg/plancache"
	"github.com/mangrovedb/mangrove/go/mg/planner"
	"github.com/mangrovedb/mangrove/go/mg/planranker"
	"github.com/mangrovedb/mangrove/go/mg/query"
	"github.com/mangrovedb/mangrove/go/mg/queryexec"
)

type raceOptions struct {
	results   []int
	churn     []int
	blocking  []bool
	limit     int64
	records   int64
	cacheMode string
}

// Race returns the subcommand that runs a synthetic plan competition.
func Race() *cobra.Command {
	var (
		opts        raceOptions
		resultsArg  string
		churnArg    string
		blockingArg string
	)

	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race synthetic candidate plans through a trial period.",
		Long: "Races synthetic candidate plans the way the server's multi-planner does.\n" +
			"Each candidate is described positionally: --results 5,2 --churn 0,3 builds two\n" +
			"candidates, the first producing 5 documents with no churn, the second 2\n" +
			"documents after 3 unproductive work steps.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if opts.results, err = parseIntList(resultsArg); err != nil {
				return err
			}
			if opts.churn, err = parseIntList(churnArg); err != nil {
				return err
			}
			if opts.blocking, err = parseBoolList(blockingArg); err != nil {
				return err
			}
			return runRace(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&resultsArg, "results", "5,2", "documents each candidate produces, comma separated")
	cmd.Flags().StringVar(&churnArg, "churn", "", "unproductive work steps before each candidate's documents, comma separated")
	cmd.Flags().StringVar(&blockingArg, "blocking", "", "whether each candidate's plan has a blocking stage, comma separated")
	cmd.Flags().Int64Var(&opts.limit, "limit", 0, "query limit, 0 for none")
	cmd.Flags().Int64Var(&opts.records, "records", 1000, "synthetic collection record count, drives the trial work budget")
	cmd.Flags().StringVar(&opts.cacheMode, "cache-mode", "sometimes", "plan cache write mode: always, sometimes or never")

	return cmd
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad count %q: %v", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseBoolList(s string) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]bool, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseBool(strings.TrimSpace(p))
		if err != nil {
			return nil, mgerrors.Errorf(mgerrors.InvalidArgument, "bad bool %q: %v", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseCacheMode(s string) (queryexec.CachingMode, error) {
	switch s {
	case "always":
		return queryexec.CacheAlways, nil
	case "sometimes":
		return queryexec.CacheSometimes, nil
	case "never":
		return queryexec.CacheNever, nil
	}
	return 0, mgerrors.Errorf(mgerrors.InvalidArgument, "unknown cache mode %q", s)
}

type syntheticColl int64

func (c syntheticColl) NumRecords() int64 { return int64(c) }

func runRace(cmd *cobra.Command, opts *raceOptions) error {
	if len(opts.results) == 0 {
		return mgerrors.New(mgerrors.InvalidArgument, "need at least one candidate")
	}

	mode, err := parseCacheMode(opts.cacheMode)
	if err != nil {
		return err
	}

	q := &query.Query{Namespace: "race.synthetic"}
	if opts.limit > 0 {
		q.Limit = &opts.limit
	}

	pc := plancache.New(plancache.Config{DefaultExpiration: plancache.NoExpiration})
	ws := queryexec.NewWorkingSet()
	mp := queryexec.NewMultiPlanStage(q, syntheticColl(opts.records), planranker.Ranker{},
		queryexec.WithKnobs(knobs),
		queryexec.WithPlanCache(pc, mode))

	for i, docs := range opts.results {
		stage := queryexec.NewQueuedDataStage(ws)
		if i < len(opts.churn) {
			for j := 0; j < opts.churn[i]; j++ {
				stage.PushState(queryexec.WorkNeedTime)
			}
		}
		for j := 0; j < docs; j++ {
			stage.PushDoc(keyval.Document{"n": keyval.NewNumber(float64(j))})
		}

		idx := planner.IndexEntry{
			Name:       fmt.Sprintf("candidate_%d", i),
			KeyPattern: keyval.Pattern{keyval.Asc("n")},
		}
		root := planner.Node(planner.NewFetchNode(planner.NewIndexScanNode(idx)))
		blocking := i < len(opts.blocking) && opts.blocking[i]
		if blocking {
			sn := &planner.SortNode{Pattern: keyval.Pattern{keyval.Asc("n")}}
			sn.AddChild(root)
			root = sn
		}
		mp.AddPlan(&planner.QuerySolution{
			Root:             root,
			HasBlockingStage: blocking,
			CacheData:        &planner.SolutionCacheData{IndexName: idx.Name, Direction: 1},
		}, stage)
	}

	if err := mp.PickBestPlan(cmd.Context(), queryexec.NoopYieldPolicy{}); err != nil {
		return err
	}

	stats := mp.CompetitionStats()
	decision := mp.Decision()
	scores := make(map[int]float64, len(decision.CandidateOrder))
	for i, idx := range decision.CandidateOrder {
		scores[idx] = decision.Scores[i]
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Candidate", "Works", "Score", "Role"})
	for i := range opts.results {
		role := ""
		if i == stats.BestPlanIdx {
			role = "winner"
		} else if i == stats.BackupPlanIdx {
			role = "backup"
		}
		score := "failed"
		if s, ok := scores[i]; ok {
			score = strconv.FormatFloat(s, 'f', 4, 64)
		}
		table.Append([]string{
			fmt.Sprintf("candidate_%d", i),
			strconv.FormatUint(stats.CandidateWorks[i], 10),
			score,
			role,
		})
	}
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "\ntrial: budget %d works, took %v\n",
		stats.TrialWorkBudget, stats.TrialDuration)
	if decision.TieForBest {
		fmt.Fprintln(cmd.OutOrStdout(), "ranking: tie for best")
	}
	if entry, ok := pc.Get(q); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "plan cache: wrote entry %v (%d solutions)\n",
			entry.ID, len(entry.Solutions))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "plan cache: no entry written")
	}
	return nil
}
