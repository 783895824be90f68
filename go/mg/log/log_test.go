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

package log

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ slog.Handler = (*capturingHandler)(nil)

// capturingHandler buffers records instead of writing them out.
type capturingHandler struct {
	level   slog.Level
	records []slog.Record
}

func (h *capturingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingHandler) WithGroup(string) slog.Handler      { return h }

func TestStructuredRouting(t *testing.T) {
	h := &capturingHandler{level: slog.LevelInfo}
	defer SetLogger(slog.New(h))()

	InfoS("picked plan", "candidate", 2)
	WarnS("trial slow")
	DebugS("dropped") // below the handler level

	require.Len(t, h.records, 2)
	assert.Equal(t, "picked plan", h.records[0].Message)
	assert.Equal(t, slog.LevelInfo, h.records[0].Level)
	assert.Equal(t, slog.LevelWarn, h.records[1].Level)

	var found bool
	h.records[0].Attrs(func(a slog.Attr) bool {
		if a.Key == "candidate" {
			found = true
			assert.EqualValues(t, 2, a.Value.Int64())
		}
		return true
	})
	assert.True(t, found)
}

func TestEnabled(t *testing.T) {
	// Structured logging consults the configured handler.
	restore := SetLogger(slog.New(&capturingHandler{level: slog.LevelWarn}))
	assert.False(t, Enabled(slog.LevelInfo))
	assert.True(t, Enabled(slog.LevelWarn))
	restore()

	// Without structured logging, info and above always log and debug is
	// gated on glog verbosity, which is off here.
	assert.True(t, Enabled(slog.LevelInfo))
	assert.False(t, Enabled(slog.LevelDebug))
}

func TestSetLoggerRestores(t *testing.T) {
	require.False(t, structuredLoggingEnabled.Load())
	restore := SetLogger(slog.New(&capturingHandler{}))
	assert.True(t, structuredLoggingEnabled.Load())
	restore()
	assert.False(t, structuredLoggingEnabled.Load())

	// A nil logger is a no-op.
	SetLogger(nil)()
	assert.False(t, structuredLoggingEnabled.Load())
}

func TestInitWithoutFormatFlag(t *testing.T) {
	// No log-fmt flag at all, and a registered but unchanged one, both
	// leave structured logging off.
	require.NoError(t, Init(pflag.NewFlagSet("bare", pflag.ContinueOnError)))
	assert.False(t, structuredLoggingEnabled.Load())

	fs := pflag.NewFlagSet("registered", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, Init(fs))
	assert.False(t, structuredLoggingEnabled.Load())

	require.NoError(t, Init(nil))
}

func TestInitRejectsBadValues(t *testing.T) {
	defer func(format, level string) {
		logFormat, logLevel = format, level
	}(logFormat, logLevel)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Set("log-fmt", "xml"))
	assert.ErrorContains(t, Init(fs), "invalid log-fmt")
	assert.False(t, structuredLoggingEnabled.Load())

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Set("log-fmt", "json"))
	require.NoError(t, fs.Set("log-level", "verbose"))
	assert.ErrorContains(t, Init(fs), "invalid log-level")
	assert.False(t, structuredLoggingEnabled.Load())
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"info":   slog.LevelInfo,
		" Warn ": slog.LevelWarn,
		"ERROR":  slog.LevelError,
	} {
		got, err := slogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := slogLevel("verbose")
	assert.Error(t, err)
}

func TestLogRotateMaxSizeFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)

	f := fs.Lookup("log-rotate-max-size")
	require.NotNil(t, f)
	assert.Equal(t, "uint64", f.Value.Type())
	assert.Error(t, f.Value.Set("not-a-number"))
	require.NoError(t, f.Value.Set("4096"))
	assert.Equal(t, "4096", f.Value.String())
}
