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

package queryexec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the multi-planner's exported counters.
type Metrics struct {
	TrialsTotal        prometheus.Counter
	TrialDuration      prometheus.Histogram
	TrialFailuresTotal prometheus.Counter
	BackupUsedTotal    prometheus.Counter
	CacheWritesTotal   prometheus.Counter
}

// NewMetrics registers the multi-planner metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TrialsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mangrove",
			Subsystem: "multiplan",
			Name:      "trials_total",
			Help:      "Plan competitions run.",
		}),
		TrialDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "mangrove",
			Subsystem: "multiplan",
			Name:      "trial_duration_seconds",
			Help:      "Wall time of plan competition trial periods.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		TrialFailuresTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mangrove",
			Subsystem: "multiplan",
			Name:      "trial_failures_total",
			Help:      "Plan competitions in which every candidate failed.",
		}),
		BackupUsedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mangrove",
			Subsystem: "multiplan",
			Name:      "backup_used_total",
			Help:      "Winner failures recovered by switching to the backup plan.",
		}),
		CacheWritesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mangrove",
			Subsystem: "multiplan",
			Name:      "cache_writes_total",
			Help:      "Competition outcomes written to the plan cache.",
		}),
	}
}
