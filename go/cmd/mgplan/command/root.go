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

// Package command implements mgplan, a command-line tool for inspecting
// Mangrove's adaptive query planning: it can race synthetic candidate
// plans the way the server does and explain access-path analysis of a
// query.
package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mangrovedb/mangrove/go/mg/log"
	"github.com/mangrovedb/mangrove/go/mg/query"
)

var (
	configFile string
	knobs      = query.DefaultKnobs()

	Root = &cobra.Command{
		Use:   "mgplan",
		Short: "mgplan inspects Mangrove's adaptive query planning.",
		Long: "`mgplan` races candidate query plans against each other the way the server's\n" +
			"multi-planner does, and explains how access-path analysis shapes a plan tree.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			return loadKnobs(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
		Run: func(cmd *cobra.Command, _ []string) { cmd.Help() },
	}
)

// loadKnobs layers the planner tunables: defaults, then the config file,
// then explicitly set flags.
func loadKnobs(cmd *cobra.Command) error {
	if configFile == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	fromFile := query.KnobsFromViper(v)

	fs := cmd.Flags()
	if !fs.Changed("query-plan-trial-works") {
		knobs.TrialWorks = fromFile.TrialWorks
	}
	if !fs.Changed("query-plan-trial-coll-fraction") {
		knobs.TrialCollFraction = fromFile.TrialCollFraction
	}
	if !fs.Changed("query-plan-trial-max-results") {
		knobs.TrialMaxResults = fromFile.TrialMaxResults
	}
	if !fs.Changed("query-plan-max-scans-to-explode") {
		knobs.MaxScansToExplode = fromFile.MaxScansToExplode
	}
	if !fs.Changed("query-plan-split-limited-sort") {
		knobs.SplitLimitedSort = fromFile.SplitLimitedSort
	}
	return nil
}

func init() {
	Root.PersistentFlags().StringVarP(&configFile, "config-file", "f", "",
		"optional config file with planner tunables")
	log.RegisterFlags(Root.PersistentFlags())
	knobs.RegisterFlags(Root.PersistentFlags())

	Root.AddCommand(Race())
	Root.AddCommand(Explain())
}
