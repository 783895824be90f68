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
	"context"

	"github.com/mangrovedb/mangrove/go/mg/mgerrors"
)

// YieldPolicy decides when and how a running plan gives up its resources.
type YieldPolicy interface {
	// CanAutoYield reports whether the policy can release and reacquire
	// resources on the stage's behalf.
	CanAutoYield() bool

	// ShouldYieldOrInterrupt reports whether the plan is due for a yield or
	// an interruption check, typically because the yield timer elapsed or
	// the operation was killed.
	ShouldYieldOrInterrupt(ctx context.Context) bool

	// YieldOrInterrupt releases resources, checks for interruption, and
	// reacquires. A non-nil error aborts the plan.
	YieldOrInterrupt(ctx context.Context) error
}

// NoopYieldPolicy auto-yields by doing nothing beyond an interrupt check.
type NoopYieldPolicy struct{}

func (NoopYieldPolicy) CanAutoYield() bool { return true }

func (NoopYieldPolicy) ShouldYieldOrInterrupt(ctx context.Context) bool {
	return ctx.Err() != nil
}

func (NoopYieldPolicy) YieldOrInterrupt(ctx context.Context) error {
	return ctx.Err()
}

// tryYield services a yield request. Without an auto-yielding policy the
// only way to retry the operation is to restart it from scratch, which is
// what a conflict error tells the caller to do.
func tryYield(ctx context.Context, policy YieldPolicy) error {
	if policy != nil && policy.CanAutoYield() {
		return policy.YieldOrInterrupt(ctx)
	}
	return mgerrors.New(mgerrors.Aborted, "plan requested yield but the yield policy cannot auto-yield")
}

// checkYield yields when the policy says the plan is due, independent of
// any stage asking for one. The yield timer can elapse, or the operation
// can be killed, between successive work units.
func checkYield(ctx context.Context, policy YieldPolicy) error {
	if policy == nil || !policy.ShouldYieldOrInterrupt(ctx) {
		return nil
	}
	return tryYield(ctx, policy)
}
