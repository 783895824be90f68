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

package mgerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndErrorf(t *testing.T) {
	err := New(InvalidArgument, "bad request")
	assert.Equal(t, "bad request", err.Error())
	assert.Equal(t, InvalidArgument, CodeOf(err))

	err = Errorf(Aborted, "plan %d yielded", 3)
	assert.Equal(t, "plan 3 yielded", err.Error())
	assert.Equal(t, Aborted, CodeOf(err))
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(NotFound, "no such index")
	err := Wrap(inner, "building scan")
	assert.Equal(t, "building scan: no such index", err.Error())
	assert.Equal(t, NotFound, CodeOf(err))
	assert.ErrorIs(t, err, inner)

	err = Wrapf(err, "planning %q", "test.c")
	assert.Equal(t, `planning "test.c": building scan: no such index`, err.Error())
	assert.Equal(t, NotFound, CodeOf(err))
	assert.ErrorIs(t, err, inner)
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "ignored"))
	require.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, Unknown, CodeOf(errors.New("plain")))
	assert.Equal(t, Unknown, CodeOf(fmt.Errorf("wrapped: %w", errors.New("plain"))))

	// The innermost coded error wins even through stdlib wrapping.
	coded := New(Internal, "broken invariant")
	assert.Equal(t, Internal, CodeOf(fmt.Errorf("outer: %w", coded)))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ABORTED", Aborted.String())
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "UNKNOWN", Code(999).String())
}
